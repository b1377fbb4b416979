package packet

// Pingreq is the PINGREQ packet (§3.12). It has no variable header or
// payload.
type Pingreq struct{}

// EncodedLen returns the total wire size of the PINGREQ packet.
func (Pingreq) EncodedLen() int { return 2 }

// Encode writes the PINGREQ packet into buf.
func (Pingreq) Encode(buf []byte) (int, error) {
	return EncodeFixedHeader(buf, 0, PINGREQ, 0, 0)
}

// Pingresp is the PINGRESP packet (§3.13). It has no variable header or
// payload.
type Pingresp struct{}

// EncodedLen returns the total wire size of the PINGRESP packet.
func (Pingresp) EncodedLen() int { return 2 }

// Encode writes the PINGRESP packet into buf.
func (Pingresp) Encode(buf []byte) (int, error) {
	return EncodeFixedHeader(buf, 0, PINGRESP, 0, 0)
}
