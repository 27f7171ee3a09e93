// Package rule contains the core data model of a single filtering rule: the
// element-type bitfield, the filter category, the immutable filter record,
// its matching logic, domain matching, and the Rabin–Karp substring matcher
// used by the most common filter category.
package rule

import "strings"

// ElementType is a bitfield naming the kinds of network requests and
// rule-applicability flags a filter applies to.  The zero value matches no
// element type.
type ElementType uint64

// Defined element-type bits.  Names in rule syntax are matched
// case-insensitively; see [ParseElementTypeName].
const (
	Script ElementType = 1 << iota
	Image
	Stylesheet
	Object
	XMLHTTPRequest
	ObjectSubrequest
	Subdocument
	Ping
	WebSocket
	WebRTC
	Document
	ElemHide
	GenericHide
	GenericBlock
	PopUp
	ThirdParty
	MatchCase
	Collapse
	BadFilter
	CSP
	InlineScript
	Other
	// NotImplemented marks an option the engine recognizes but does not
	// support, e.g. cname or popunder.
	NotImplemented
)

// elementTypeNames maps every recognized rule-syntax option name to the bit
// it sets.  Names are stored lower-case; lookups must fold case first.
var elementTypeNames = map[string]ElementType{
	"script":            Script,
	"image":             Image,
	"stylesheet":        Stylesheet,
	"css":               Stylesheet,
	"object":            Object,
	"xmlhttprequest":    XMLHTTPRequest,
	"xhr":               XMLHTTPRequest,
	"object-subrequest": ObjectSubrequest,
	"subdocument":       Subdocument,
	"frame":             Subdocument,
	"ping":               Ping,
	"websocket":         WebSocket,
	"webrtc":            WebRTC,
	"document":          Document,
	"doc":               Document,
	"elemhide":          ElemHide,
	"generichide":       GenericHide,
	"genericblock":      GenericBlock,
	"popup":             PopUp,
	"third-party":       ThirdParty,
	"3p":                ThirdParty,
	"match-case":        MatchCase,
	"collapse":          Collapse,
	"badfilter":         BadFilter,
	"inline-script":     InlineScript,
	"other":             Other,

	// Recognized but unsupported; see spec.md §9 Open Questions.
	"cname":     NotImplemented,
	"popunder":  NotImplemented,
}

// ParseElementTypeName returns the bit named by name, folding case.  ok is
// false if name is not a recognized element-type or flag name.  The "csp"
// option is handled separately by the parser, since it carries an argument.
func ParseElementTypeName(name string) (et ElementType, ok bool) {
	et, ok = elementTypeNames[strings.ToLower(name)]

	return et, ok
}

// Has reports whether et contains all the bits in bit.
func (et ElementType) Has(bit ElementType) bool {
	return et&bit == bit
}

// HasAny reports whether et contains any of the bits in bits.
func (et ElementType) HasAny(bits ElementType) bool {
	return et&bits != 0
}

// typeBits lists the type bits checked, in order, by [Filter.IsMatch] step 5
// of spec.md §4.4.
var typeBits = []ElementType{
	XMLHTTPRequest,
	Document,
	Object,
	Subdocument,
	Image,
	Script,
	Stylesheet,
	WebSocket,
	ObjectSubrequest,
	InlineScript,
	Ping,
	CSP,
	Other,
}

// nonRestrictingBits are element-type bits that do not, by themselves,
// restrict a filter's blocked_types to a subset of request types; see
// spec.md §4.4 step 5.
const nonRestrictingBits = ThirdParty | MatchCase | Collapse
