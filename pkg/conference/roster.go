package conference

import (
	"time"

	"github.com/turnroom/turnroom/pkg/com"
)

// Participant is a roster entry.
// It is pending until a connection binds to it.
type Participant struct {
	Name string
	Id   com.Uid

	reserved time.Time
}

func (p *Participant) IsBound() bool { return !p.Id.IsNil() }

// Roster is the ordered list of room participants, the order defines the speaking rotation.
// It is owned by a single room goroutine and not safe for concurrent use.
type Roster struct {
	list []*Participant
}

// Insert appends a pending participant with a unique name.
// It returns the new roster length, not a position.
func (r *Roster) Insert(name string, now time.Time) (int, error) {
	if r.byName(name) >= 0 {
		return 0, ErrDuplicateName
	}
	r.list = append(r.list, &Participant{Name: name, Id: com.NilUid, reserved: now})
	return len(r.list), nil
}

// Bind attaches a live connection to the pending participant with the name
// and returns its position.
func (r *Roster) Bind(name string, id com.Uid) (int, error) {
	i := r.byName(name)
	if i < 0 {
		return -1, ErrNotFound
	}
	if r.list[i].IsBound() {
		return -1, ErrAlreadyBound
	}
	if _, err := r.IndexOf(id); err == nil {
		return -1, ErrAlreadyBound
	}
	r.list[i].Id = id
	return i, nil
}

func (r *Roster) IndexOf(id com.Uid) (int, error) {
	if id.IsNil() {
		return -1, ErrNotFound
	}
	for i, p := range r.list {
		if p.Id == id {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Remove deletes the participant bound to the connection,
// the following entries shift left.
func (r *Roster) Remove(id com.Uid) (int, *Participant, error) {
	i, err := r.IndexOf(id)
	if err != nil {
		return -1, nil, err
	}
	p := r.list[i]
	r.list = append(r.list[:i], r.list[i+1:]...)
	return i, p, nil
}

// RemovePendingBefore drops the reservations made before t
// that never got a connection.
func (r *Roster) RemovePendingBefore(t time.Time) (removed []string) {
	kept := r.list[:0]
	for _, p := range r.list {
		if !p.IsBound() && p.reserved.Before(t) {
			removed = append(removed, p.Name)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.list); i++ {
		r.list[i] = nil
	}
	r.list = kept
	return
}

func (r *Roster) At(i int) *Participant {
	if i < 0 || i >= len(r.list) {
		return nil
	}
	return r.list[i]
}

func (r *Roster) Len() int { return len(r.list) }

// Members returns the bound participants in the rotation order.
func (r *Roster) Members() []*Participant {
	var out []*Participant
	for _, p := range r.list {
		if p.IsBound() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Roster) byName(name string) int {
	for i, p := range r.list {
		if p.Name == name {
			return i
		}
	}
	return -1
}
