package rubyparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVagrantfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Vagrantfile")
	require.NoError(t, os.WriteFile(path, []byte(`
Vagrant.configure("2") do |config|
  config.vm.box = "ubuntu/jammy64"
  config.vm.hostname = "dev-box"
  config.vm.network "private_network", ip: "192.168.56.10"
  config.vm.network "forwarded_port", guest: 80, host: 8080
  config.vm.provision "ansible" do |ansible|
    ansible.playbook = "site.yml"
  end
  config.vm.provision "shell", inline: "echo done"
end
`), 0o644))

	v, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu/jammy64", v.Box)
	assert.Equal(t, "dev-box", v.Hostname)
	assert.Equal(t, []string{"private_network", "forwarded_port"}, v.Networks)
	assert.Equal(t, []string{"ansible", "shell"}, v.Provisioners)
}

func TestParseEmptyVagrantfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Vagrantfile")
	require.NoError(t, os.WriteFile(path, []byte("Vagrant.configure(\"2\") do |config|\nend\n"), 0o644))

	v, err := Parse(path)
	require.NoError(t, err)
	assert.Empty(t, v.Box)
	assert.Empty(t, v.Networks)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "Vagrantfile"))
	assert.Error(t, err)
}
