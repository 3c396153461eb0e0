package descriptor

// optionsProtoPath is the virtual import path every schema file pulls in to
// get at the excel/sheet/key/output/prefix/suffix/text/cname extensions.
const optionsProtoPath = "xlstool/options.proto"

// optionsProtoSource mirrors the original tool's option.proto: a handful of
// proto2 custom extensions against the standard option messages. Field
// numbers live in the 50000+ range reserved for private extensions.
const optionsProtoSource = `syntax = "proto2";

package xlstool;

import "google/protobuf/descriptor.proto";

extend google.protobuf.MessageOptions {
  optional string excel = 50001;
  optional string sheet = 50002;
  optional string key = 50003;
  optional string output = 50004;
  optional string prefix = 50005;
  optional string suffix = 50006;
}

extend google.protobuf.FieldOptions {
  optional string text = 50001;
}

extend google.protobuf.EnumValueOptions {
  optional string cname = 50001;
}
`

// messageOptionTags enumerates the message-level option tags the core
// recognizes (spec.md §3).
var messageOptionTags = []string{"excel", "sheet", "key", "output", "prefix", "suffix"}
