// Package keyvalues implements parsing and serializing of KeyValue text, the
// configuration format of the Source engine (sometimes called VDF or Valve KV).
//
// A document is a list of quoted keys, each followed by either a quoted value
// or a braced section of further key value pairs. Keys may repeat, and
// documents can import others with #base directives.
//
//	// a basic KeyValue document
//	#base "defaults.kv"
//	"name" "example"
//	"tags"
//	{
//	  "0" "red"
//	  "1" "green"
//	}
//
// Everything is a string: there are no numbers or booleans in the syntax, so
// the Go type a document is decoded into decides how each value is read.
//
// For example, you could read the above document into:
//
//	type Example struct {
//	  Name string   `kv:"name"`
//	  Tags []string `kv:"tags"`
//	}
//
//	example := Example{}
//	keyvalues.UnmarshalFile("example.kv", &example)
//
// [UnmarshalFile] follows the #base directives and merges the imported files
// in breadth first order; [Unmarshal] decodes a single document and ignores
// them. The untyped tree is available with [Parse] and [ParseFile].
//
// Sequences are written as sections keyed by position. Booleans are "0" and
// "1". Pointers are optional values that decode to nil from "". Types that
// implement [encoding.TextMarshaler] and [encoding.TextUnmarshaler] are
// written as a single scalar, and types implementing [Marshaler] and
// [Unmarshaler] can take full control of their shape.
package keyvalues
