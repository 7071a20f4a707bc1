package gatt

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A MalformedDefinitionError reports a service definition document
// that could not be turned into an attribute table.
type MalformedDefinitionError struct {
	Offset int64 // input offset at which the problem was detected
	Err    error
}

func (e *MalformedDefinitionError) Error() string {
	return fmt.Sprintf("gatt: malformed definition at offset %d: %v", e.Offset, e.Err)
}

// Cause returns the underlying error.
func (e *MalformedDefinitionError) Cause() error { return e.Err }

// A BuildOption configures Build.
type BuildOption func(*builder)

// BuildBase sets the handle of the first attribute. Handles start at 0
// unless set otherwise.
func BuildBase(h uint16) BuildOption {
	return func(b *builder) { b.base = h }
}

// Build reads a service definition document from r and returns the
// attribute table it describes. The document looks like:
//
//	<Server>
//	  <Service uuid="180A" type="primary" name="Device Information">
//	    <SecuritySettings ReadWithAuthentication="0"/>
//	    <IncludedServices>
//	      <IncludedService uuid="180F" type="included" name="Battery"/>
//	    </IncludedServices>
//	    <Characteristics>
//	      <Characteristic uuid="2A29" type="string" name="Manufacturer">
//	        <Properties Read="1" Write="1"/>
//	        <Value>
//	          <SecuritySettings WriteWithAuthentication="1"/>
//	        </Value>
//	        <Descriptors>
//	          <Descriptor uuid="2901" type="string" name="Description">
//	            <Value>Manufacturer name</Value>
//	          </Descriptor>
//	        </Descriptors>
//	      </Characteristic>
//	    </Characteristics>
//	  </Service>
//	</Server>
//
// Flags may also be written as child elements, e.g. <Read>1</Read>.
// Any error is returned as a *MalformedDefinitionError, and no table.
func Build(r io.Reader, opts ...BuildOption) (*Store, error) {
	b := &builder{
		dec:      xml.NewDecoder(r),
		services: make(map[UUID]*Attribute),
		closed:   make(map[UUID]bool),
		pending:  make(map[UUID][]*Attribute),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.st = NewStore(b.base)
	if err := b.document(); err != nil {
		return nil, &MalformedDefinitionError{Offset: b.dec.InputOffset(), Err: err}
	}
	return b.st, nil
}

type builder struct {
	dec  *xml.Decoder
	st   *Store
	base uint16

	services map[UUID]*Attribute   // services seen so far, by instance UUID
	closed   map[UUID]bool         // services whose end handle is known
	pending  map[UUID][]*Attribute // included services awaiting their target
}

func (b *builder) document() error {
	for {
		tok, err := b.dec.Token()
		if err == io.EOF {
			return errors.New("missing Server element")
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "Server" {
			return errors.Errorf("root element is %s, want Server", se.Name.Local)
		}
		return b.walk(func(c xml.StartElement) error {
			if c.Name.Local == "Service" {
				return b.service(c)
			}
			return b.dec.Skip()
		}, nil)
	}
}

// walk consumes tokens up to the end of the current element, calling
// open for every child element and collecting character data into text.
func (b *builder) walk(open func(xml.StartElement) error, text *bytes.Buffer) error {
	for {
		tok, err := b.dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := open(t); err != nil {
				return err
			}
		case xml.CharData:
			if text != nil {
				text.Write(t)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// alloc appends a new attribute with the next handle.
func (b *builder) alloc(typ, u UUID, name string) (*Attribute, error) {
	n := b.st.next()
	if n >= int(HandleNone) {
		return nil, errors.New("attribute handle space exhausted")
	}
	a := newAttribute(uint16(n), typ, u, name)
	b.st.add(a)
	return a, nil
}

// last returns the most recently allocated handle.
func (b *builder) last() uint16 { return uint16(b.st.next() - 1) }

func (b *builder) identity(se xml.StartElement) (u UUID, typ, name string, err error) {
	var us string
	var seen [3]bool
	for _, a := range se.Attr {
		switch a.Name.Local {
		case "uuid":
			us, seen[0] = a.Value, true
		case "type":
			typ, seen[1] = a.Value, true
		case "name":
			name, seen[2] = a.Value, true
		}
	}
	for i, k := range [...]string{"uuid", "type", "name"} {
		if !seen[i] {
			return u, "", "", errors.Errorf("%s: missing %q attribute", se.Name.Local, k)
		}
	}
	if u, err = ParseUUID(us); err != nil {
		return u, "", "", errors.Wrap(err, se.Name.Local)
	}
	return u, typ, name, nil
}

func (b *builder) service(se xml.StartElement) error {
	u, typ, name, err := b.identity(se)
	if err != nil {
		return err
	}
	t := attrPrimaryServiceUUID
	if strings.EqualFold(typ, "secondary") {
		t = attrSecondaryServiceUUID
	}
	svc, err := b.alloc(t, u, name)
	if err != nil {
		return err
	}
	b.openService(svc)

	err = b.walk(func(c xml.StartElement) error {
		switch c.Name.Local {
		case "SecuritySettings":
			f, err := b.flags(c)
			svc.Perm = perms(f)
			return err
		case "IncludedServices":
			return b.walk(func(c xml.StartElement) error {
				if c.Name.Local == "IncludedService" {
					return b.include(c)
				}
				return b.dec.Skip()
			}, nil)
		case "Characteristics":
			return b.walk(func(c xml.StartElement) error {
				if c.Name.Local == "Characteristic" {
					return b.characteristic(c)
				}
				return b.dec.Skip()
			}, nil)
		}
		return b.dec.Skip()
	}, nil)
	if err != nil {
		return err
	}
	svc.EndHandle = b.last()
	b.closeService(svc)
	return nil
}

// openService back-patches included services parsed before svc.
func (b *builder) openService(svc *Attribute) {
	b.services[svc.UUID] = svc
	delete(b.closed, svc.UUID)
	for _, inc := range b.pending[svc.UUID] {
		inc.StartHandle = svc.Handle
		inc.Ref = svc.Handle
	}
}

func (b *builder) closeService(svc *Attribute) {
	b.closed[svc.UUID] = true
	for _, inc := range b.pending[svc.UUID] {
		inc.EndHandle = svc.EndHandle
	}
	delete(b.pending, svc.UUID)
}

func (b *builder) include(se xml.StartElement) error {
	u, _, name, err := b.identity(se)
	if err != nil {
		return err
	}
	inc, err := b.alloc(attrIncludeUUID, u, name)
	if err != nil {
		return err
	}
	inc.StartHandle, inc.EndHandle = HandleNone, HandleNone
	if svc, ok := b.services[u]; ok {
		inc.StartHandle = svc.Handle
		inc.Ref = svc.Handle
		if b.closed[u] {
			inc.EndHandle = svc.EndHandle
			return b.dec.Skip()
		}
	}
	b.pending[u] = append(b.pending[u], inc)
	return b.dec.Skip()
}

func (b *builder) characteristic(se xml.StartElement) error {
	u, _, name, err := b.identity(se)
	if err != nil {
		return err
	}
	decl, err := b.alloc(attrCharacteristicUUID, u, name)
	if err != nil {
		return err
	}
	val, err := b.alloc(u, u, name)
	if err != nil {
		return err
	}
	val.Ref = decl.Handle

	ownProps := false // set once the Value element declares its own properties
	err = b.walk(func(c xml.StartElement) error {
		switch c.Name.Local {
		case "Properties":
			f, err := b.flags(c)
			decl.Props = props(f)
			if !ownProps {
				val.Props = decl.Props
			}
			return err
		case "Value":
			return b.value(c, val, &ownProps)
		case "Descriptors":
			return b.walk(func(c xml.StartElement) error {
				if c.Name.Local == "Descriptor" {
					return b.descriptor(c, val)
				}
				return b.dec.Skip()
			}, nil)
		}
		return b.dec.Skip()
	}, nil)
	if err != nil {
		return err
	}
	decl.EndHandle = b.last()
	return nil
}

// value parses a Value element into a. ownProps is set when the
// element carries its own Properties.
func (b *builder) value(se xml.StartElement, a *Attribute, ownProps *bool) error {
	var text bytes.Buffer
	err := b.walk(func(c xml.StartElement) error {
		switch c.Name.Local {
		case "SecuritySettings":
			f, err := b.flags(c)
			a.Perm = perms(f)
			return err
		case "Properties":
			f, err := b.flags(c)
			a.Props = props(f)
			if ownProps != nil {
				*ownProps = true
			}
			return err
		}
		return b.dec.Skip()
	}, &text)
	if err != nil {
		return err
	}
	v, err := parseValue(text.String())
	if err != nil {
		return err
	}
	if v != nil {
		a.Value = v
	}
	return nil
}

func (b *builder) descriptor(se xml.StartElement, val *Attribute) error {
	u, _, name, err := b.identity(se)
	if err != nil {
		return err
	}
	d, err := b.alloc(u, u, name)
	if err != nil {
		return err
	}
	d.Ref = val.Handle
	return b.walk(func(c xml.StartElement) error {
		switch c.Name.Local {
		case "Value":
			return b.value(c, d, nil)
		case "Properties":
			f, err := b.flags(c)
			d.Props = props(f)
			return err
		case "SecuritySettings":
			f, err := b.flags(c)
			d.Perm = perms(f)
			return err
		case "Range":
			f, err := b.flags(c)
			if err != nil {
				return err
			}
			if d.MinRange, err = rangeBound(f, "min"); err != nil {
				return err
			}
			d.MaxRange, err = rangeBound(f, "max")
			return err
		}
		return b.dec.Skip()
	}, nil)
}

// flags collects name/value pairs from the attributes and the child
// elements of se.
func (b *builder) flags(se xml.StartElement) (map[string]string, error) {
	f := make(map[string]string)
	for _, a := range se.Attr {
		f[a.Name.Local] = strings.TrimSpace(a.Value)
	}
	err := b.walk(func(c xml.StartElement) error {
		var text bytes.Buffer
		if err := b.walk(func(xml.StartElement) error { return b.dec.Skip() }, &text); err != nil {
			return err
		}
		f[c.Name.Local] = strings.TrimSpace(text.String())
		return nil
	}, nil)
	return f, err
}

func perms(f map[string]string) Permission {
	var p Permission
	for k, bit := range permNames {
		if f[k] == "1" {
			p |= bit
		}
	}
	return p
}

func props(f map[string]string) Property {
	var p Property
	for k, bit := range propNames {
		if f[k] == "1" {
			p |= bit
		}
	}
	return p
}

func rangeBound(f map[string]string, k string) (int64, error) {
	s, ok := f[k]
	if !ok {
		s, ok = f[strings.Title(k)]
	}
	if !ok || s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "range %s", k)
	}
	return n, nil
}

// parseValue decodes "0x"-prefixed hex, or takes s literally. Hex may
// be split into fields, each with its own prefix: "0x00 0x01".
// Blank text means no value.
func parseValue(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !hasHexPrefix(s) {
		return []byte(s), nil
	}
	var h strings.Builder
	for _, f := range strings.Fields(s) {
		if hasHexPrefix(f) {
			f = f[2:]
		}
		h.WriteString(f)
	}
	v, err := hex.DecodeString(h.String())
	if err != nil {
		return nil, errors.Wrapf(err, "value %q", s)
	}
	return v, nil
}

func hasHexPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}
