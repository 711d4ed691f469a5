package client

import (
	"strings"

	"github.com/ValentinKolb/sKV/rpc/protocol"
)

// Format renders a response the way the command line client prints it,
// one line per value:
//
//	(str) bar
//	(int) 1
//	(dbl) 1.5
//	(nil)
//	(err) 4 expect float
//	(arr) len=2
//	...
//	(arr) end
func Format(v protocol.Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v protocol.Value) {
	switch v.Tag {
	case protocol.TagNil:
		sb.WriteString("(nil)\n")
	case protocol.TagErr:
		sb.WriteString("(err) ")
		sb.WriteString(formatInt(int64(v.Code)))
		sb.WriteByte(' ')
		sb.Write(v.Str)
		sb.WriteByte('\n')
	case protocol.TagStr:
		sb.WriteString("(str) ")
		sb.Write(v.Str)
		sb.WriteByte('\n')
	case protocol.TagInt:
		sb.WriteString("(int) ")
		sb.WriteString(formatInt(v.Int))
		sb.WriteByte('\n')
	case protocol.TagDbl:
		sb.WriteString("(dbl) ")
		sb.WriteString(formatFloat(v.Dbl))
		sb.WriteByte('\n')
	case protocol.TagArr:
		sb.WriteString("(arr) len=")
		sb.WriteString(formatInt(int64(len(v.Arr))))
		sb.WriteByte('\n')
		for _, e := range v.Arr {
			writeValue(sb, e)
		}
		sb.WriteString("(arr) end\n")
	default:
		sb.WriteString("(unknown) ")
		sb.WriteString(v.Tag.String())
		sb.WriteByte('\n')
	}
}
