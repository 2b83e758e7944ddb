package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	RoomCodeLength   = 6
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode - generates a short human-shareable room code.
func GenerateRoomCode() (string, error) {
	limit := big.NewInt(int64(len(RoomCodeAlphabet)))

	var code strings.Builder
	code.Grow(RoomCodeLength)

	for range RoomCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}
		code.WriteByte(RoomCodeAlphabet[n.Int64()])
	}

	return code.String(), nil
}

// NormalizeRoomCode - brings user input to the stored form of a code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateRoomID - generates the storage identifier of a room.
func GenerateRoomID() string {
	return uuid.NewString()
}

// GenerateIdentity - generates a new player identity token.
func GenerateIdentity() string {
	return uuid.NewString()
}
