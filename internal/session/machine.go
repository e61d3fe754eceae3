package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Status is the caller-visible progress of one submission.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConverting Status = "converting"
	StatusUploading  Status = "uploading"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
)

// ErrBusy is returned when a submission starts while another is in flight.
var ErrBusy = errors.New("submission already in progress")

var order = []Status{StatusWaiting, StatusConverting, StatusUploading, StatusGenerating, StatusSuccess}

// Next returns the status that follows s. The machine is linear, so there is
// exactly one successor for every status except the terminal one.
func Next(s Status) (Status, bool) {
	for i, candidate := range order[:len(order)-1] {
		if candidate == s {
			return order[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is an edge of the machine.
func CanTransition(from, to Status) bool {
	next, ok := Next(from)
	return ok && next == to
}

// Machine tracks the status of a single submission. It has no failure state:
// a failed stage leaves the status where it was and the error travels
// alongside, so a status other than waiting or success with a returned error
// means that stage failed.
type Machine struct {
	id       string
	status   Status
	onChange []func(from, to Status)
	mu       sync.RWMutex
}

func NewMachine(id string) *Machine {
	return &Machine{id: id, status: StatusWaiting}
}

func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Accepting reports whether the submit control is enabled.
func (m *Machine) Accepting() bool {
	return m.Status() == StatusWaiting
}

// OnChange registers a callback invoked after every transition.
func (m *Machine) OnChange(fn func(from, to Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Begin starts a submission, moving waiting -> converting.
func (m *Machine) Begin() error {
	if err := m.Advance(StatusConverting); err != nil {
		return ErrBusy
	}
	return nil
}

// Advance moves the machine to the given status, which must be the direct
// successor of the current one.
func (m *Machine) Advance(to Status) error {
	m.mu.Lock()
	from := m.status
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("invalid transition: %s -> %s", from, to)
	}
	m.status = to
	callbacks := append([]func(from, to Status){}, m.onChange...)
	m.mu.Unlock()

	log.Printf("Status for session %s set to %s", m.id, to)
	for _, fn := range callbacks {
		fn(from, to)
	}
	return nil
}
