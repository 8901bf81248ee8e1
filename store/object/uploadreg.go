package object

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/buntdb"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// UploadState tracks one in-flight upload_id end to end — the
// process-local record named in §5 ("Upload records are not durable
// across process restarts"). Grounded on the teacher's dbdriver.BuntDriver
// (eef808a24ff-aistore/dbdriver/bunt.go), repurposed from a generic
// object-marshaling KV into a single-table upload registry with
// per-record TTL expiry for the GC sweep named in §4.6.
type UploadState struct {
	UploadID       string           `json:"upload_id"`
	Bucket         string           `json:"bucket"`
	Key            string           `json:"key"`
	Filename       string           `json:"filename"`
	ContentType    string           `json:"content_type"`
	TotalSize      int64            `json:"total_size"`
	Multipart      bool             `json:"multipart"`
	S3UploadID     string           `json:"s3_upload_id,omitempty"`
	Parts          []Part           `json:"parts,omitempty"`
	Buffered       []byte           `json:"-"` // single-part body, kept out of the JSON snapshot
	ExistingFileID *string          `json:"existing_file_id,omitempty"`
	DirectoryID    *string          `json:"directory_id,omitempty"`
	LibraryID      string           `json:"library_id"`
	Status         string           `json:"status"` // pending-single | pending-multipart | completed | aborted
	CreatedBy      string           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
}

const (
	StatusPendingSingle    = "pending-single"
	StatusPendingMultipart = "pending-multipart"
	StatusCompleted        = "completed"
	StatusAborted          = "aborted"
)

// Registry serializes all access to upload state per upload_id behind
// a single lock, matching §5's "Access must be serialized per
// upload_id; whole-map access uses a single lock or equivalent
// concurrent map." The backing store is buntdb opened against ":memory:"
// so expired entries are reaped by buntdb's own TTL sweep rather than a
// hand-rolled ticker.
type Registry struct {
	mu  sync.Mutex
	db  *buntdb.DB
	ttl time.Duration
}

const uploadCollection = "upload"

func NewRegistry(ttl time.Duration) (*Registry, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, cmn.WrapError(cmn.KindFatal, err, "opening upload registry")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{db: db, ttl: ttl}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) Put(state *UploadState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, err := jsoniter.Marshal(state)
	if err != nil {
		return err
	}
	// Buffered bytes never round-trip through JSON (tagged "-"); store
	// them in a side key so a single-part body survives between init
	// and complete without bloating the JSON snapshot.
	return r.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(uploadCollection+"#"+state.UploadID, string(buf),
			&buntdb.SetOptions{Expires: true, TTL: r.ttl}); err != nil {
			return err
		}
		if len(state.Buffered) > 0 {
			_, _, err := tx.Set(uploadCollection+"#body#"+state.UploadID, string(state.Buffered),
				&buntdb.SetOptions{Expires: true, TTL: r.ttl})
			return err
		}
		return nil
	})
}

func (r *Registry) Get(uploadID string) (*UploadState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var raw, body string
	err := r.db.View(func(tx *buntdb.Tx) error {
		var err error
		raw, err = tx.Get(uploadCollection + "#" + uploadID)
		if err != nil {
			return err
		}
		body, _ = tx.Get(uploadCollection + "#body#" + uploadID)
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, cmn.NewError(cmn.KindNotFound, "upload %s not found or expired", uploadID)
	}
	if err != nil {
		return nil, err
	}
	state := &UploadState{}
	if err := jsoniter.Unmarshal([]byte(raw), state); err != nil {
		return nil, err
	}
	if body != "" {
		state.Buffered = []byte(body)
	}
	return state, nil
}

func (r *Registry) Delete(uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(uploadCollection + "#" + uploadID)
		if err != nil && err != buntdb.ErrNotFound {
			return err
		}
		_, _ = tx.Delete(uploadCollection + "#body#" + uploadID)
		return nil
	})
}

// Sweep drops any upload record whose key has already expired under
// buntdb's own TTL, satisfying §4.6's "Expired/stale uploads MAY be
// garbage-collected by a periodic sweep" — buntdb already excludes
// expired keys from AscendKeys, so this just forces a compaction pass.
func (r *Registry) Sweep() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Shrink()
}
