package graph

// BatchConfig tunes the upsert chunk size per node kind. Simple nodes
// with few properties tolerate large batches; tasks, plays and handlers
// go smaller to keep transaction memory flat.
type BatchConfig struct {
	FileBatchSize     int
	TaskBatchSize     int
	VariableBatchSize int
	CodeBatchSize     int // Module, Class, Function, Import
	EdgeBatchSize     int
}

// DefaultBatchConfig suits mid-sized automation repos (a few thousand
// files).
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		FileBatchSize:     1000,
		TaskBatchSize:     300,
		VariableBatchSize: 1000,
		CodeBatchSize:     1000,
		EdgeBatchSize:     2000,
	}
}

// SizeForKind maps a node kind to its chunk size.
func (bc BatchConfig) SizeForKind(kind string) int {
	switch kind {
	case "File", "Directory", "Playbook", "Template", "Inventory", "VarsFile":
		return bc.FileBatchSize
	case "Task", "Play", "Handler":
		return bc.TaskBatchSize
	case "Variable", "Role":
		return bc.VariableBatchSize
	case "Module", "Class", "Function", "Import":
		return bc.CodeBatchSize
	default:
		return 500
	}
}
