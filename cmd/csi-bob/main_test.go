package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	csi "github.com/doismellburning/csisignal/src"
)

func Test_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, csi.BobMain([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: csi-bob")
}

func Test_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, csi.BobMain([]string{"--no-such-flag"}, &stdout, &stderr))
}
