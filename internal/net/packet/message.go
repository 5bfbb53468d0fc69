package packet

// S_OPCODE_SYSTEM_MESSAGE carries a framed system announcement.
const S_OPCODE_SYSTEM_MESSAGE byte = 0x5A

// Announcement frame header values.
const (
	announceChannel uint32 = 0x90000003 // system channel, scrolling banner
	announceStyle   int32  = 3
)

// Outbound is anything that can be queued on a player's delivery queue.
type Outbound interface {
	Opcode() byte
	Bytes() []byte
}

// SystemMessage is an announcement broadcast to every player on a map.
// Description is the framed payload built by AnnouncementPayload.
type SystemMessage struct {
	Description []byte
}

func (m *SystemMessage) Opcode() byte { return S_OPCODE_SYSTEM_MESSAGE }

// Bytes returns [C op][H len][description], padded to 4 bytes.
func (m *SystemMessage) Bytes() []byte {
	w := NewWriterWithOpcode(S_OPCODE_SYSTEM_MESSAGE)
	w.WriteH(uint16(len(m.Description)))
	w.WriteBytes(m.Description)
	return w.Bytes()
}

// AnnouncementPayload frames text as [D 0][DU channel][D style][D 0][S text].
// The text is written as UTF-8 followed by a single NUL.
func AnnouncementPayload(text string) []byte {
	w := NewWriter()
	w.WriteD(0)
	w.WriteDU(announceChannel)
	w.WriteD(announceStyle)
	w.WriteD(0)
	w.WriteS(text)
	return w.RawBytes()
}
