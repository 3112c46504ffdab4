package link

import (
	"github.com/golang/protobuf/proto"
)

// Frame carries a chunk of the serial byte stream.
type Frame struct {
	Port                 uint32   `protobuf:"varint,1,opt,name=port,proto3" json:"port,omitempty"`
	Seq                  uint32   `protobuf:"varint,2,opt,name=seq,proto3" json:"seq,omitempty"`
	Data                 []byte   `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Frame) ProtoMessage() {}

// EncodeFrame encodes a frame into a packet.
func EncodeFrame(f *Frame) ([]byte, error) {
	return proto.Marshal(f)
}

// DecodeFrame decodes a packet into a frame.
func DecodeFrame(pkt []byte) (*Frame, error) {
	f := &Frame{}
	if err := proto.Unmarshal(pkt, f); err != nil {
		return nil, err
	}
	return f, nil
}
