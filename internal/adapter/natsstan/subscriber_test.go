package natsstan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/dataservice-read/internal/domain"
)

func TestAckOnError(t *testing.T) {
	assert.True(t, ackOnError(domain.NewError(domain.ErrorKindPreconditionFailed, "bad json")))
	assert.False(t, ackOnError(errors.New("cache down")))
	assert.False(t, ackOnError(domain.NewError(domain.ErrorKindServiceError, "x")))
}
