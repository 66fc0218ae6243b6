package dispatch

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/repograph/gateway/internal/guard"
)

// Session is the per-connection context: at most one active repository
// id for the lifetime of the SSE channel.
type Session struct {
	ID           string
	RepositoryID string
	CreatedAt    time.Time
}

// SessionStore is the small get/set/clear façade around session state,
// so tools never touch ambient globals and tests can substitute it.
type SessionStore interface {
	Open(id string) (*Session, error)
	Get(id string) (*Session, bool)
	SetRepository(id, repositoryID string) error
	ClearRepository(id string) error
	Close(id string) error
}

// MemorySessionStore keeps sessions in process memory; state dies with
// the channel, which is the contract for ephemeral clients.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Open(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{ID: id, CreatedAt: time.Now()}
	s.sessions[id] = sess
	return sess, nil
}

func (s *MemorySessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *MemorySessionStore) SetRepository(id, repositoryID string) error {
	if err := guard.ValidateRepositoryID(repositoryID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %q is not open", id)
	}
	sess.RepositoryID = repositoryID
	return nil
}

func (s *MemorySessionStore) ClearRepository(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.RepositoryID = ""
	}
	return nil
}

func (s *MemorySessionStore) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// BoltSessionStore persists the repository context to a local bbolt
// database, so a gateway restart does not silently drop the scope of a
// reconnecting session.
type BoltSessionStore struct {
	mem *MemorySessionStore
	db  *bolt.DB
}

var sessionBucket = []byte("sessions")

// NewBoltSessionStore opens (or creates) the database at path.
func NewBoltSessionStore(path string) (*BoltSessionStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("session store: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session store: creating bucket: %w", err)
	}
	return &BoltSessionStore{mem: NewMemorySessionStore(), db: db}, nil
}

func (s *BoltSessionStore) Open(id string) (*Session, error) {
	sess, err := s.mem.Open(id)
	if err != nil {
		return nil, err
	}
	// A reconnecting session resumes its previous repository scope.
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionBucket).Get([]byte(id)); v != nil {
			sess.RepositoryID = string(v)
		}
		return nil
	})
	return sess, nil
}

func (s *BoltSessionStore) Get(id string) (*Session, bool) {
	return s.mem.Get(id)
}

func (s *BoltSessionStore) SetRepository(id, repositoryID string) error {
	if err := s.mem.SetRepository(id, repositoryID); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(id), []byte(repositoryID))
	})
}

func (s *BoltSessionStore) ClearRepository(id string) error {
	if err := s.mem.ClearRepository(id); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(id))
	})
}

func (s *BoltSessionStore) Close(id string) error {
	return s.mem.Close(id)
}

// Shutdown releases the underlying database.
func (s *BoltSessionStore) Shutdown() error {
	return s.db.Close()
}
