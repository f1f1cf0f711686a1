package sshserver

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"
)

// LoadAuthorizedKeys parses an OpenSSH authorized_keys file. Blank
// lines and comment lines are skipped; a malformed key line is an
// error rather than a silently narrowed gate.
func LoadAuthorizedKeys(path string) ([]gliderssh.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}
	var keys []gliderssh.PublicKey
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			return nil, fmt.Errorf("parse authorized keys %s:%d: %w", path, lineNo, err)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}
	return keys, nil
}
