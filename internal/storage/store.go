package storage

// Store bundles the repositories behind a single value that satisfies the
// reservation engine's store contract.
type Store struct {
	*RoomRepository
	*EventRepository
	db *DB
}

// NewStore creates repositories over db.
func NewStore(db *DB) *Store {
	return &Store{
		RoomRepository:  NewRoomRepository(db),
		EventRepository: NewEventRepository(db),
		db:              db,
	}
}

// DB returns the underlying database connection.
func (s *Store) DB() *DB {
	return s.db
}
