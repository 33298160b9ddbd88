// Package opcode is the closed mnemonic table: mnemonic <-> numeric
// BPF opcode byte, family membership, and the base/imm/reg variant
// specialization the parser applies before emission.
package opcode

// Opcode identifies a resolved (possibly still unspecialized) mnemonic.
type Opcode uint16

// Family groups opcodes for parser dispatch (spec.md 4.3.1).
type Family int

const (
	FamilyLddw Family = iota
	FamilyLoadIndexed
	FamilyStore
	FamilyArithmetic
	FamilyJump
	FamilyJa
	FamilyCall
	FamilyExit
	FamilyUnary // neg32/neg64: single register operand
)

// Base mnemonics. Each arithmetic/jump base occupies three consecutive
// IDs: Base, Base+1 (immediate form), Base+2 (register form) -- the
// same convention astnode.rs's parser uses for opcode specialization
// (`FromPrimitive::from_u8(opcode as u8 + 1)`). The IDs below are
// purely a dispatch convenience; Byte() maps each resolved variant to
// its real wire-level BPF opcode.
const (
	Lddw Opcode = iota

	LdxW
	LdxH
	LdxB
	LdxDW

	Stw
	Sth
	Stb
	Stdw
	Stxw
	Stxh
	Stxb
	Stxdw

	Add32
	Add32Imm
	Add32Reg
	Sub32
	Sub32Imm
	Sub32Reg
	Mul32
	Mul32Imm
	Mul32Reg
	Div32
	Div32Imm
	Div32Reg
	Or32
	Or32Imm
	Or32Reg
	And32
	And32Imm
	And32Reg
	Lsh32
	Lsh32Imm
	Lsh32Reg
	Rsh32
	Rsh32Imm
	Rsh32Reg
	Mod32
	Mod32Imm
	Mod32Reg
	Xor32
	Xor32Imm
	Xor32Reg
	Mov32
	Mov32Imm
	Mov32Reg
	Arsh32
	Arsh32Imm
	Arsh32Reg
	Lmul32
	Lmul32Imm
	Lmul32Reg
	Udiv32
	Udiv32Imm
	Udiv32Reg
	Urem32
	Urem32Imm
	Urem32Reg
	Sdiv32
	Sdiv32Imm
	Sdiv32Reg
	Srem32
	Srem32Imm
	Srem32Reg

	Add64
	Add64Imm
	Add64Reg
	Sub64
	Sub64Imm
	Sub64Reg
	Mul64
	Mul64Imm
	Mul64Reg
	Div64
	Div64Imm
	Div64Reg
	Or64
	Or64Imm
	Or64Reg
	And64
	And64Imm
	And64Reg
	Lsh64
	Lsh64Imm
	Lsh64Reg
	Rsh64
	Rsh64Imm
	Rsh64Reg
	Mod64
	Mod64Imm
	Mod64Reg
	Xor64
	Xor64Imm
	Xor64Reg
	Mov64
	Mov64Imm
	Mov64Reg
	Arsh64
	Arsh64Imm
	Arsh64Reg
	Lmul64
	Lmul64Imm
	Lmul64Reg
	Uhmul64
	Uhmul64Imm
	Uhmul64Reg
	Udiv64
	Udiv64Imm
	Udiv64Reg
	Urem64
	Urem64Imm
	Urem64Reg
	Sdiv64
	Sdiv64Imm
	Sdiv64Reg
	Srem64
	Srem64Imm
	Srem64Reg

	Neg32
	Neg64

	Jeq
	JeqImm
	JeqReg
	Jgt
	JgtImm
	JgtReg
	Jge
	JgeImm
	JgeReg
	Jlt
	JltImm
	JltReg
	Jle
	JleImm
	JleReg
	Jset
	JsetImm
	JsetReg
	Jne
	JneImm
	JneReg
	Jsgt
	JsgtImm
	JsgtReg
	Jsge
	JsgeImm
	JsgeReg
	Jslt
	JsltImm
	JsltReg
	Jsle
	JsleImm
	JsleReg

	Ja
	Call
	Exit
)

// mnemonics maps every acceptable source-level mnemonic to its base
// Opcode and family.
var mnemonics = map[string]struct {
	op Opcode
	f  Family
}{
	"lddw": {Lddw, FamilyLddw},

	"ldxw":  {LdxW, FamilyLoadIndexed},
	"ldxh":  {LdxH, FamilyLoadIndexed},
	"ldxb":  {LdxB, FamilyLoadIndexed},
	"ldxdw": {LdxDW, FamilyLoadIndexed},

	"stw":   {Stw, FamilyStore},
	"sth":   {Sth, FamilyStore},
	"stb":   {Stb, FamilyStore},
	"stdw":  {Stdw, FamilyStore},
	"stxw":  {Stxw, FamilyStore},
	"stxh":  {Stxh, FamilyStore},
	"stxb":  {Stxb, FamilyStore},
	"stxdw": {Stxdw, FamilyStore},

	"add32":  {Add32, FamilyArithmetic},
	"sub32":  {Sub32, FamilyArithmetic},
	"mul32":  {Mul32, FamilyArithmetic},
	"div32":  {Div32, FamilyArithmetic},
	"or32":   {Or32, FamilyArithmetic},
	"and32":  {And32, FamilyArithmetic},
	"lsh32":  {Lsh32, FamilyArithmetic},
	"rsh32":  {Rsh32, FamilyArithmetic},
	"mod32":  {Mod32, FamilyArithmetic},
	"xor32":  {Xor32, FamilyArithmetic},
	"mov32":  {Mov32, FamilyArithmetic},
	"arsh32": {Arsh32, FamilyArithmetic},
	"lmul32": {Lmul32, FamilyArithmetic},
	"udiv32": {Udiv32, FamilyArithmetic},
	"urem32": {Urem32, FamilyArithmetic},
	"sdiv32": {Sdiv32, FamilyArithmetic},
	"srem32": {Srem32, FamilyArithmetic},

	"add64":   {Add64, FamilyArithmetic},
	"sub64":   {Sub64, FamilyArithmetic},
	"mul64":   {Mul64, FamilyArithmetic},
	"div64":   {Div64, FamilyArithmetic},
	"or64":    {Or64, FamilyArithmetic},
	"and64":   {And64, FamilyArithmetic},
	"lsh64":   {Lsh64, FamilyArithmetic},
	"rsh64":   {Rsh64, FamilyArithmetic},
	"mod64":   {Mod64, FamilyArithmetic},
	"xor64":   {Xor64, FamilyArithmetic},
	"mov64":   {Mov64, FamilyArithmetic},
	"arsh64":  {Arsh64, FamilyArithmetic},
	"lmul64":  {Lmul64, FamilyArithmetic},
	"uhmul64": {Uhmul64, FamilyArithmetic},
	"udiv64":  {Udiv64, FamilyArithmetic},
	"urem64":  {Urem64, FamilyArithmetic},
	"sdiv64":  {Sdiv64, FamilyArithmetic},
	"srem64":  {Srem64, FamilyArithmetic},

	"neg32": {Neg32, FamilyUnary},
	"neg64": {Neg64, FamilyUnary},

	"jeq":  {Jeq, FamilyJump},
	"jgt":  {Jgt, FamilyJump},
	"jge":  {Jge, FamilyJump},
	"jlt":  {Jlt, FamilyJump},
	"jle":  {Jle, FamilyJump},
	"jset": {Jset, FamilyJump},
	"jne":  {Jne, FamilyJump},
	"jsgt": {Jsgt, FamilyJump},
	"jsge": {Jsge, FamilyJump},
	"jslt": {Jslt, FamilyJump},
	"jsle": {Jsle, FamilyJump},

	"ja":   {Ja, FamilyJa},
	"call": {Call, FamilyCall},
	"exit": {Exit, FamilyExit},
}

// unsupported lists mnemonics the lexer must tokenize as Opcode (so
// they don't get mistaken for plain identifiers) but that the parser
// dispatch rejects outright: byte-swap and deprecated store forms.
var unsupported = map[string]bool{
	"be16": true, "be32": true, "be64": true,
	"le16": true, "le32": true, "le64": true,
	"stx": true, "ldx": true,
}

// Lookup resolves a mnemonic to its base opcode and family. ok is
// false both for ordinary identifiers and for recognized-but-rejected
// legacy mnemonics (the caller distinguishes via IsUnsupported).
func Lookup(mnemonic string) (Opcode, Family, bool) {
	e, ok := mnemonics[mnemonic]
	if !ok {
		return 0, 0, false
	}
	return e.op, e.f, true
}

// IsMnemonic reports whether a lexed identifier names any recognized
// opcode, supported or not -- used by the lexer to classify a token
// as Opcode rather than Identifier.
func IsMnemonic(s string) bool {
	if _, ok := mnemonics[s]; ok {
		return true
	}
	return unsupported[s]
}

// Suggest returns the closest known mnemonic to word by edit distance,
// for use in "unknown instruction, did you mean ...?" diagnostics. ok
// is false if word is already a recognized mnemonic or if nothing in
// the table is close enough to be a plausible typo.
func Suggest(word string) (suggestion string, ok bool) {
	if IsMnemonic(word) {
		return "", false
	}
	best := ""
	bestDist := len(word)/2 + 2 // only suggest plausible typos, not unrelated words
	for m := range mnemonics {
		d := levenshteinDistance(word, m)
		if d < bestDist {
			bestDist = d
			best = m
		}
	}
	return best, best != ""
}

// levenshteinDistance is the classic edit-distance metric over two
// strings, used by Suggest to find the nearest known mnemonic to a
// misspelled one.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// IsUnsupported reports whether the mnemonic is recognized but
// deliberately rejected by parser dispatch (be/le byte-swap ops and
// deprecated bare stx/ldx forms).
func IsUnsupported(s string) bool {
	return unsupported[s]
}

// Specialize returns the immediate-form (+1) or register-form (+2)
// variant of a family base opcode.
func (o Opcode) SpecializeImm() Opcode { return o + 1 }
func (o Opcode) SpecializeReg() Opcode { return o + 2 }

// byteTable maps every *specialized* (leaf) opcode to its real
// wire-level BPF instruction byte. Classic ALU/ALU64/JMP/LD/LDX/ST/STX
// values follow the published eBPF ISA (Linux bpf.h / RFC draft);
// the PQR (product/quotient/remainder) extended 64-bit arithmetic
// opcodes (lmul/uhmul/udiv/urem/sdiv/srem) follow the values published
// by Solana's SBF virtual machine, which extends the classic ISA with
// a dedicated wide-arithmetic opcode group. See DESIGN.md.
var byteTable = map[Opcode]uint8{
	Lddw: 0x18,

	LdxW:  0x61,
	LdxH:  0x69,
	LdxB:  0x71,
	LdxDW: 0x79,

	Stw:   0x62,
	Sth:   0x6a,
	Stb:   0x72,
	Stdw:  0x7a,
	Stxw:  0x63,
	Stxh:  0x6b,
	Stxb:  0x73,
	Stxdw: 0x7b,

	Add32Imm: 0x04, Add32Reg: 0x0c,
	Sub32Imm: 0x14, Sub32Reg: 0x1c,
	Mul32Imm: 0x24, Mul32Reg: 0x2c,
	Div32Imm: 0x34, Div32Reg: 0x3c,
	Or32Imm: 0x44, Or32Reg: 0x4c,
	And32Imm: 0x54, And32Reg: 0x5c,
	Lsh32Imm: 0x64, Lsh32Reg: 0x6c,
	Rsh32Imm: 0x74, Rsh32Reg: 0x7c,
	Mod32Imm: 0x94, Mod32Reg: 0x9c,
	Xor32Imm: 0xa4, Xor32Reg: 0xac,
	Mov32Imm: 0xb4, Mov32Reg: 0xbc,
	Arsh32Imm: 0xc4, Arsh32Reg: 0xcc,

	Lmul32Imm: 0x86, Lmul32Reg: 0x8e,
	Udiv32Imm: 0x46, Udiv32Reg: 0x4e,
	Urem32Imm: 0x66, Urem32Reg: 0x6e,
	Sdiv32Imm: 0xc6, Sdiv32Reg: 0xce,
	Srem32Imm: 0xe6, Srem32Reg: 0xee,

	Add64Imm: 0x07, Add64Reg: 0x0f,
	Sub64Imm: 0x17, Sub64Reg: 0x1f,
	Mul64Imm: 0x27, Mul64Reg: 0x2f,
	Div64Imm: 0x37, Div64Reg: 0x3f,
	Or64Imm: 0x47, Or64Reg: 0x4f,
	And64Imm: 0x57, And64Reg: 0x5f,
	Lsh64Imm: 0x67, Lsh64Reg: 0x6f,
	Rsh64Imm: 0x77, Rsh64Reg: 0x7f,
	Mod64Imm: 0x97, Mod64Reg: 0x9f,
	Xor64Imm: 0xa7, Xor64Reg: 0xaf,
	Mov64Imm: 0xb7, Mov64Reg: 0xbf,
	Arsh64Imm: 0xc7, Arsh64Reg: 0xcf,

	Lmul64Imm: 0x96, Lmul64Reg: 0x9e,
	Uhmul64Imm: 0x36, Uhmul64Reg: 0x3e,
	Udiv64Imm: 0x56, Udiv64Reg: 0x5e,
	Urem64Imm: 0x76, Urem64Reg: 0x7e,
	Sdiv64Imm: 0xd6, Sdiv64Reg: 0xde,
	Srem64Imm: 0xf6, Srem64Reg: 0xfe,

	Neg32: 0x84,
	Neg64: 0x87,

	JeqImm: 0x15, JeqReg: 0x1d,
	JgtImm: 0x25, JgtReg: 0x2d,
	JgeImm: 0x35, JgeReg: 0x3d,
	JltImm: 0xa5, JltReg: 0xad,
	JleImm: 0xb5, JleReg: 0xbd,
	JsetImm: 0x45, JsetReg: 0x4d,
	JneImm: 0x55, JneReg: 0x5d,
	JsgtImm: 0x65, JsgtReg: 0x6d,
	JsgeImm: 0x75, JsgeReg: 0x7d,
	JsltImm: 0xc5, JsltReg: 0xcd,
	JsleImm: 0xd5, JsleReg: 0xdd,

	Ja:   0x05,
	Call: 0x85,
	Exit: 0x95,
}

// Byte returns the real wire-level BPF opcode byte for a fully
// specialized (leaf) opcode. It panics on a non-leaf family base,
// which would indicate a dispatch bug in the parser.
func (o Opcode) Byte() uint8 {
	b, ok := byteTable[o]
	if !ok {
		panic("opcode: unspecialized or unknown opcode has no encoded byte")
	}
	return b
}

// IsLddw reports whether o is the wide-immediate load opcode.
func (o Opcode) IsLddw() bool { return o == Lddw }

// IsJa reports whether o is the unconditional-jump opcode.
func (o Opcode) IsJa() bool { return o == Ja }
