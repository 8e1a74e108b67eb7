package fuzzy

import (
	"bufio"
	"bytes"
	"os"

	"github.com/glaslos/tlsh"
)

type TLSHHasher struct{}

func (TLSHHasher) Name() string {
	return "tlsh"
}

func (TLSHHasher) Hash(data []byte) (string, error) {
	hash, err := tlsh.HashReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (TLSHHasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash, err := tlsh.HashReader(bufio.NewReader(f))
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func init() {
	Register(TLSHHasher{})
}
