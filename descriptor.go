package gatt

// Descriptors with server-side semantics. Any other descriptor is
// stored and served as an opaque value.

// userDescriptionWritable reports whether the characteristic owning
// the User Description descriptor a has an Extended Properties
// descriptor with its low bit set.
func (s *Server) userDescriptionWritable(a *Attribute) bool {
	decl, ok := s.st.characteristicOf(a)
	if !ok {
		return false
	}
	ext, ok := s.st.FindInRange(attrExtendedPropertiesUUID, decl.StartHandle, decl.EndHandle)
	if !ok {
		return false
	}
	s.refresh(ext)
	return len(ext.Value) > 0 && ext.Value[0]&0x01 != 0
}

// aggregatePayload lists the Presentation Format descriptors of the
// characteristic owning the Aggregate Format descriptor a.
func (s *Server) aggregatePayload(a *Attribute) []byte {
	decl, ok := s.st.characteristicOf(a)
	if !ok {
		return []byte{}
	}
	b := []byte{}
	for _, h := range s.st.HandlesOfType(attrPresentationFormatUUID) {
		if h >= decl.StartHandle && h <= decl.EndHandle {
			b = append(b, byte(h), byte(h>>8))
		}
	}
	return b
}
