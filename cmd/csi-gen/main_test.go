package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	csi "github.com/doismellburning/csisignal/src"
)

func Test_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, csi.GenMain([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: csi-gen")
}

func Test_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, csi.GenMain([]string{"--no-such-flag"}, &stdout, &stderr))
}
