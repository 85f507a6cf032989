package tracker

import "sort"

// recordStore 文件标识到记录的映射. 不做并发控制，由 Tracker 的锁保护.
type recordStore struct {
	records map[string]storedRecord
	seq     uint64
}

type storedRecord struct {
	FileRecord
	seq uint64
}

func newRecordStore() *recordStore {
	return &recordStore{records: make(map[string]storedRecord)}
}

// put 插入记录；标识已存在时返回 false 且不做任何修改.
func (s *recordStore) put(rec FileRecord) bool {
	if _, exists := s.records[rec.FileID]; exists {
		return false
	}

	s.seq++
	s.records[rec.FileID] = storedRecord{FileRecord: rec, seq: s.seq}

	return true
}

func (s *recordStore) get(id string) (FileRecord, bool) {
	r, ok := s.records[id]
	return r.FileRecord, ok
}

func (s *recordStore) remove(id string) (FileRecord, bool) {
	r, ok := s.records[id]
	if !ok {
		return FileRecord{}, false
	}

	delete(s.records, id)

	return r.FileRecord, true
}

// findByName 按登记顺序返回第一个显示名完全匹配的记录标识.
func (s *recordStore) findByName(name string) (string, bool) {
	var (
		found string
		best  uint64
	)

	for id, r := range s.records {
		if r.Name != name {
			continue
		}

		if found == "" || r.seq < best {
			found, best = id, r.seq
		}
	}

	return found, found != ""
}

// listAll 返回按登记顺序排列的记录拷贝.
func (s *recordStore) listAll() []FileRecord {
	stored := make([]storedRecord, 0, len(s.records))
	for _, r := range s.records {
		stored = append(stored, r)
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	out := make([]FileRecord, len(stored))
	for i, r := range stored {
		out[i] = r.FileRecord
	}

	return out
}

// ids 返回按登记顺序排列的全部标识.
func (s *recordStore) ids() []string {
	all := s.listAll()

	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.FileID
	}

	return out
}

func (s *recordStore) len() int { return len(s.records) }
