package obslog

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitParsesValidLevel(t *testing.T) {
	Init("warn")
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	Init("not-a-real-level")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
