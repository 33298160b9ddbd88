package section

import "bytes"

// BuildShstrtab renders `.shstrtab`'s payload: a leading NUL followed
// by each section name NUL-terminated, in allocation order, with
// `.shstrtab` itself appended last (spec.md 4.6). It returns the
// payload and each name's byte offset within it, for use as section
// header sh_name values.
func BuildShstrtab(sectionNames []string) ([]byte, map[string]uint32) {
	var buf bytes.Buffer
	buf.WriteByte(0)
	offsets := make(map[string]uint32)
	names := append(append([]string{}, sectionNames...), ".shstrtab")
	for _, n := range names {
		if _, ok := offsets[n]; ok {
			continue
		}
		offsets[n] = uint32(buf.Len())
		buf.WriteString(n)
		buf.WriteByte(0)
	}
	return buf.Bytes(), offsets
}
