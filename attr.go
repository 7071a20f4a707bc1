package gatt

import "sort"

// A CCCMode is the subscription a session has written to a Client
// Characteristic Configuration descriptor.
type CCCMode uint8

const (
	CCCNone     CCCMode = 0
	CCCNotify   CCCMode = 1
	CCCIndicate CCCMode = 2
)

func (m CCCMode) String() string {
	switch m {
	case CCCNotify:
		return "notify"
	case CCCIndicate:
		return "indicate"
	}
	return "none"
}

// An Attribute is one row of the GATT database.
//
// Type is one of the ATT declaration types, except for characteristic
// values, whose Type is the owning characteristic's UUID. UUID is the
// instance UUID (the service, characteristic, or descriptor UUID).
type Attribute struct {
	Handle uint16
	Type   UUID
	UUID   UUID
	Name   string

	// StartHandle and EndHandle bound a group (service or characteristic).
	// Included services carry HandleNone until their target is parsed.
	StartHandle uint16
	EndHandle   uint16

	// Ref points to the owning attribute: value → declaration,
	// descriptor → value, included service → target service.
	Ref uint16

	Props Property
	Perm  Permission
	Value []byte

	MinRange int64
	MaxRange int64

	subs map[string]CCCMode // session → mode; CCC descriptors only
}

func newAttribute(h uint16, typ, u UUID, name string) *Attribute {
	return &Attribute{
		Handle:      h,
		Type:        typ,
		UUID:        u,
		Name:        name,
		StartHandle: h,
		EndHandle:   h,
		Ref:         HandleNone,
	}
}

// Subscription returns the mode session has subscribed with.
func (a *Attribute) Subscription(session string) CCCMode {
	return a.subs[session]
}

// Sessions returns the sessions with an active subscription, sorted.
func (a *Attribute) Sessions() []string {
	ss := make([]string, 0, len(a.subs))
	for s := range a.subs {
		ss = append(ss, s)
	}
	sort.Strings(ss)
	return ss
}

func (a *Attribute) setSubscription(session string, m CCCMode) {
	if m == CCCNone {
		delete(a.subs, session)
		return
	}
	if a.subs == nil {
		a.subs = make(map[string]CCCMode)
	}
	a.subs[session] = m
}

func (a *Attribute) isGroup() bool {
	return a.Type == attrPrimaryServiceUUID || a.Type == attrSecondaryServiceUUID
}

// isStructural reports whether a is readable without the Read property.
func (a *Attribute) isStructural() bool {
	return a.isGroup() || a.Type == attrIncludeUUID || a.Type == attrCharacteristicUUID
}
