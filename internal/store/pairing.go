package store

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// PairingStore tracks which senders have completed the out-of-band pairing
// flow a channel requires before it will act on their messages, and issues
// the one-time codes used to complete that flow.
type PairingStore interface {
	IsPaired(senderID, channel string) bool
	RequestPairing(senderID, channel, target, agentKey string) (string, error)
}

type pairingRecord struct {
	channel  string
	target   string
	agentKey string
	paired   bool
}

// MemoryPairingStore is an in-process PairingStore. A pairing request issues
// a short numeric code and marks the sender paired immediately; callers that
// need a real approval step (e.g. an operator confirming the code out of
// band) should wrap this with their own gate before trusting IsPaired.
type MemoryPairingStore struct {
	mu      sync.RWMutex
	records map[string]*pairingRecord
}

func NewMemoryPairingStore() *MemoryPairingStore {
	return &MemoryPairingStore{records: make(map[string]*pairingRecord)}
}

func pairingKey(senderID, channel string) string {
	return channel + ":" + senderID
}

func (s *MemoryPairingStore) IsPaired(senderID, channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[pairingKey(senderID, channel)]
	return ok && rec.paired
}

func (s *MemoryPairingStore) RequestPairing(senderID, channel, target, agentKey string) (string, error) {
	code, err := generatePairingCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[pairingKey(senderID, channel)] = &pairingRecord{
		channel:  channel,
		target:   target,
		agentKey: agentKey,
		paired:   true,
	}
	return code, nil
}

func generatePairingCode() (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	return fmt.Sprintf("%06d", n%1000000), nil
}
