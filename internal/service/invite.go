package service

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// inviteAlphabet leaves out characters that are easy to misread (I, O, 0, 1).
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 8

// GenerateInviteCode returns a fresh code formatted as XXXX-XXXX.
//
// len(inviteAlphabet) is 32, which divides 256, so byte%32 has no modulo bias.
func GenerateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("service/invite: reading random bytes: %w", err)
	}

	var b strings.Builder
	b.Grow(inviteCodeLength + 1)
	for i, v := range buf {
		if i == inviteCodeLength/2 {
			b.WriteByte('-')
		}
		b.WriteByte(inviteAlphabet[int(v)%len(inviteAlphabet)])
	}
	return b.String(), nil
}

// NormalizeInviteCode makes user input comparable with stored codes: trimmed,
// upper-cased, and with the dash restored when it was typed without one.
func NormalizeInviteCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == inviteCodeLength && !strings.Contains(code, "-") {
		code = code[:inviteCodeLength/2] + "-" + code[inviteCodeLength/2:]
	}
	return code
}
