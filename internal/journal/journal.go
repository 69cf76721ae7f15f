// Package journal provides an on-disk journal of recorded test results.
// Results are journaled as they are recorded during the session and cleared
// after a successful publish, so an interrupted session leaves an inspectable
// record of what was never uploaded.

package journal

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

const resultsBucket = "recorded_results"

// Entry is one journaled test result.
type Entry struct {
	ID         uint64            `json:"id"`
	CaseID     int               `json:"case_id"`
	StatusID   int               `json:"status_id"`
	Comment    string            `json:"comment,omitempty"`
	Defects    string            `json:"defects,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Params     map[string]string `json:"params,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Journal provides persistent storage for recorded results.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates the journal database at the given path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(resultsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Append adds an entry to the journal.
func (j *Journal) Append(e *Entry) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(resultsBucket))

		// Auto-increment ID keeps entries in recording order
		id, _ := b.NextSequence()
		e.ID = id

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		return b.Put(itob(id), data)
	})
}

// Pending returns all journaled entries in recording order.
func (j *Journal) Pending() ([]*Entry, error) {
	var entries []*Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(resultsBucket))
		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, &e)
		}
		return nil
	})

	return entries, err
}

// Clear removes all entries after a successful publish.
func (j *Journal) Clear() error {
	return j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(resultsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(resultsBucket))
		return err
	})
}

// Count returns the number of journaled entries.
func (j *Journal) Count() (int, error) {
	var count int
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(resultsBucket))
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// itob converts uint64 to big-endian bytes for ordered keys
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
