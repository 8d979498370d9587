package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/MrEthical07/goSession/privilege"
)

const claimsFormatVersion = 1

// NonceHexLength is the length of [Claims.Nonce].
const NonceHexLength = 32

// Claims identify a session. PasswordHash is an exact copy of the user's
// stored hash at issuance and anchors implicit revocation.
type Claims struct {
	UserID       int64
	Mask         privilege.Mask
	IssuedAt     int64
	Nonce        string
	PasswordHash string
}

func encodeClaims(c Claims) ([]byte, error) {
	if len(c.Nonce) > math.MaxUint16 {
		return nil, errors.New("nonce too long")
	}
	if len(c.PasswordHash) > math.MaxUint16 {
		return nil, errors.New("password hash too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 8 + 8 + 8 + 2 + len(c.Nonce) + 2 + len(c.PasswordHash))

	buf.WriteByte(claimsFormatVersion)
	_ = binary.Write(&buf, binary.BigEndian, c.UserID)
	_ = binary.Write(&buf, binary.BigEndian, uint64(c.Mask))
	_ = binary.Write(&buf, binary.BigEndian, c.IssuedAt)

	_ = binary.Write(&buf, binary.BigEndian, uint16(len(c.Nonce)))
	buf.WriteString(c.Nonce)

	_ = binary.Write(&buf, binary.BigEndian, uint16(len(c.PasswordHash)))
	buf.WriteString(c.PasswordHash)

	return buf.Bytes(), nil
}

func decodeClaims(data []byte) (Claims, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Claims{}, err
	}
	if version != claimsFormatVersion {
		return Claims{}, errors.New("unsupported claims version")
	}

	var (
		c    Claims
		mask uint64
	)
	if err := binary.Read(reader, binary.BigEndian, &c.UserID); err != nil {
		return Claims{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &mask); err != nil {
		return Claims{}, err
	}
	c.Mask = privilege.Mask(mask)
	if err := binary.Read(reader, binary.BigEndian, &c.IssuedAt); err != nil {
		return Claims{}, err
	}

	if c.Nonce, err = readString(reader); err != nil {
		return Claims{}, err
	}
	if c.PasswordHash, err = readString(reader); err != nil {
		return Claims{}, err
	}

	if reader.Len() != 0 {
		return Claims{}, errors.New("trailing claims bytes")
	}

	return c, nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > reader.Len() {
		return "", io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return string(out), nil
}
