// Package admin frames the firmware management protocol carried over the
// adapter's message channel.
//
// Both directions use the same frame:
//
//	0x5E 0x01 0x61  length (LE16)  body  checksum
//
// The checksum is the 8-bit sum of the length bytes and the body. A host
// request body is a command code followed by command data. A firmware
// reply body of one byte is a [Status]; longer bodies are command data.
//
// The channel carries raw bytes in chunks of at most 124, so a reply can
// arrive split across several reads. [Decoder] reassembles frames from any
// [io.Reader], and [Client] pairs an encoder and decoder over a [Port]:
//
//	s, _ := a.Open()
//	defer s.Close()
//	name, err := admin.NewClient(s).Identify(ctx)
package admin
