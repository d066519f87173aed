package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the tree hashing serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached report keyed by a previous hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Declarations
	TagProgram     byte = 0x01
	TagClass       byte = 0x02
	TagAttribute   byte = 0x03
	TagMethod      byte = 0x04
	TagConstructor byte = 0x05
	TagParam       byte = 0x06
	TagLocal       byte = 0x07
	TagType        byte = 0x08
	TagAbsent      byte = 0x09

	// Reserved 0x0A-0x0F

	// Statements
	TagBlock    byte = 0x10
	TagExprStmt byte = 0x11
	TagAssign   byte = 0x12
	TagReturn   byte = 0x13
	TagIf       byte = 0x14
	TagWhile    byte = 0x15

	// Expressions
	TagVariable    byte = 0x20
	TagSelf        byte = 0x21
	TagLiteral     byte = 0x22
	TagBinary      byte = 0x23
	TagUnary       byte = 0x24
	TagCall        byte = 0x25
	TagStaticCall  byte = 0x26
	TagNew         byte = 0x27
	TagNewArray    byte = 0x28
	TagFieldAccess byte = 0x29
	TagMethodCall  byte = 0x2A
	TagIndex       byte = 0x2B

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagProgram, TagClass, TagAttribute, TagMethod, TagConstructor,
	TagParam, TagLocal, TagType, TagAbsent,
	TagBlock, TagExprStmt, TagAssign, TagReturn, TagIf, TagWhile,
	TagVariable, TagSelf, TagLiteral, TagBinary, TagUnary, TagCall,
	TagStaticCall, TagNew, TagNewArray, TagFieldAccess, TagMethodCall,
	TagIndex,
}
