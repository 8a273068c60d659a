package com

import "github.com/rs/xid"

// Uid identifies a live connection.
type Uid struct {
	xid.ID
}

var NilUid = Uid{xid.NilID()}

func NewUid() Uid { return Uid{xid.New()} }

// UidFromString parses a connection id, the empty string is NilUid.
func UidFromString(s string) (Uid, error) {
	if s == "" {
		return NilUid, nil
	}
	id, err := xid.FromString(s)
	if err != nil {
		return NilUid, err
	}
	return Uid{id}, nil
}

func (u Uid) Short() string {
	s := u.String()
	return s[:3] + "." + s[len(s)-3:]
}
