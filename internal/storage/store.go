package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/ranobe/internal/catalog"
)

var ErrNotFound = errors.New("not found")

var (
	localBucket    = []byte("local")
	novelsBucket   = []byte("novels")
	chaptersBucket = []byte("chapters")
	releasesBucket = []byte("releases")
	metaBucket     = []byte("metadata")
)

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{localBucket, novelsBucket, chaptersBucket, releasesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetItem reads a raw string value from the local key-value bucket.
func (s *Store) GetItem(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(localBucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		value = string(data)
		return nil
	})
	return value, err
}

func (s *Store) SetItem(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(localBucket).Put([]byte(key), []byte(value))
	})
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Store) RemoveItem(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(localBucket).Delete([]byte(key))
	})
}

// Keys lists local keys sharing prefix in byte order.
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(localBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (s *Store) SaveNovel(novel *catalog.NovelDetail) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(CachedNovel{Novel: *novel, CachedAt: time.Now()})
		if err != nil {
			return err
		}
		return tx.Bucket(novelsBucket).Put([]byte(novel.ID), data)
	})
}

func (s *Store) GetNovel(id string) (*CachedNovel, error) {
	var cached CachedNovel
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(novelsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("novel %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &cached)
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func (s *Store) GetAllNovels() ([]*CachedNovel, error) {
	var novels []*CachedNovel
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(novelsBucket).ForEach(func(_ []byte, v []byte) error {
			var cached CachedNovel
			if err := json.Unmarshal(v, &cached); err != nil {
				return nil
			}
			novels = append(novels, &cached)
			return nil
		})
	})
	sort.Slice(novels, func(i, j int) bool {
		return strings.ToLower(novels[i].Novel.Title) < strings.ToLower(novels[j].Novel.Title)
	})
	return novels, err
}

// DeleteNovel removes a cached novel together with its downloaded chapters.
func (s *Store) DeleteNovel(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(novelsBucket).Delete([]byte(id)); err != nil {
			return err
		}

		c := tx.Bucket(chaptersBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var cached CachedChapter
			if err := json.Unmarshal(v, &cached); err != nil {
				continue
			}
			if cached.NovelID == id {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) SaveChapters(chapters []*catalog.ChapterDetail) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(chaptersBucket)
		for _, ch := range chapters {
			data, err := json.Marshal(CachedChapter{NovelID: ch.Novel.ID, Chapter: *ch, CachedAt: now})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(ch.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetChapter(id string) (*CachedChapter, error) {
	var cached CachedChapter
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(chaptersBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chapter %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &cached)
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

// ChapterIDs returns the ids of every cached chapter belonging to novelID.
func (s *Store) ChapterIDs(novelID string) (map[string]bool, error) {
	ids := make(map[string]bool)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(chaptersBucket).ForEach(func(k, v []byte) error {
			var cached CachedChapter
			if err := json.Unmarshal(v, &cached); err != nil {
				return nil
			}
			if cached.NovelID == novelID {
				ids[string(k)] = true
			}
			return nil
		})
	})
	return ids, err
}

// SaveReleases upserts releases, keeping the seen flag of entries already stored.
func (s *Store) SaveReleases(releases []*Release) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(releasesBucket)
		for _, r := range releases {
			if existing := b.Get([]byte(r.ID)); existing != nil {
				var prev Release
				if err := json.Unmarshal(existing, &prev); err == nil {
					r.Seen = r.Seen || prev.Seen
				}
			}
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetReleases(limit int) ([]*Release, error) {
	var releases []*Release
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(releasesBucket).ForEach(func(_ []byte, v []byte) error {
			var r Release
			if err := json.Unmarshal(v, &r); err != nil {
				return nil
			}
			releases = append(releases, &r)
			return nil
		})
	})
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Published.After(releases[j].Published)
	})
	if limit > 0 && len(releases) > limit {
		releases = releases[:limit]
	}
	return releases, err
}

func (s *Store) MarkReleaseSeen(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(releasesBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("release %s: %w", id, ErrNotFound)
		}
		var r Release
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		r.Seen = true
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *Store) SaveFetchMetadata(meta *FetchMetadata) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(meta.URL), data)
	})
}

func (s *Store) GetFetchMetadata(url string) (*FetchMetadata, error) {
	var meta FetchMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get([]byte(url))
		if data == nil {
			return fmt.Errorf("fetch metadata %s: %w", url, ErrNotFound)
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}
