package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// ErrNotFound is returned when a transaction ID is unknown.
var ErrNotFound = errors.New("transaction not found")

// Store owns the transaction collection. All access is serialized so the
// scheduler and CLI commands can share one instance.
type Store struct {
	mu       sync.Mutex
	repoRoot string
	txns     []model.Transaction
	byID     map[string]int
	accounts AccountChecker
}

// NewStore creates a Store over existing transactions.
func NewStore(repoRoot string, txns []model.Transaction, accounts AccountChecker) *Store {
	s := &Store{repoRoot: repoRoot, accounts: accounts}
	s.reset(txns)
	return s
}

func (s *Store) reset(txns []model.Transaction) {
	s.txns = append([]model.Transaction(nil), txns...)
	s.byID = make(map[string]int, len(txns))
	for i, t := range s.txns {
		s.byID[t.ID] = i
	}
}

func filePath(repoRoot string) string {
	return filepath.Join(repoRoot, "ledger", "transactions.csv")
}

// Load reads ledger/transactions.csv. A missing file yields an empty store.
func Load(repoRoot string, accounts AccountChecker) (*Store, error) {
	f, err := os.Open(filePath(repoRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return NewStore(repoRoot, nil, accounts), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return NewStore(repoRoot, txns, accounts), nil
}

// Save writes every transaction to ledger/transactions.csv.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filePath(s.repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}
	defer f.Close()

	if err := WriteTransactions(f, s.txns); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

// All returns a copy of every transaction in insertion order.
func (s *Store) All() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.txns...)
}

// Get returns a transaction by ID.
func (s *Store) Get(txnID string) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[txnID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, txnID)
	}
	return s.txns[i], nil
}

// Add assigns IDs to new transactions, validates them together and appends
// them. Nothing is stored when validation fails. Returns the stored copies.
func (s *Store) Add(txns []model.Transaction) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.txns))
	for i, t := range s.txns {
		ids[i] = t.ID
	}
	seq := id.NewSequencer(ids)

	added := make([]model.Transaction, len(txns))
	for i, t := range txns {
		t.ID = seq.Next(t.Date)
		added[i] = t
	}

	if verrs := ValidateTransactions(added, s.accounts); len(verrs) > 0 {
		return nil, joinValidation(verrs)
	}

	for _, t := range added {
		s.byID[t.ID] = len(s.txns)
		s.txns = append(s.txns, t)
	}
	return added, nil
}

// Update applies fn to the stored transaction.
func (s *Store) Update(txnID string, fn func(t *model.Transaction)) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[txnID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, txnID)
	}
	fn(&s.txns[i])
	return s.txns[i], nil
}

func joinValidation(verrs []ValidationError) error {
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
