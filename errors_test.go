package audiodev_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
)

type hresult struct {
	code uintptr
}

func (h *hresult) Error() string { return fmt.Sprintf("hresult 0x%08x", h.code) }
func (h *hresult) Code() uintptr { return h.code }

func TestNewSubsystemError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, audiodev.NewSubsystemError("op", nil))
	})

	t.Run("Errno", func(t *testing.T) {
		err := audiodev.NewSubsystemError("set mute", fmt.Errorf("ioctl ELEM_WRITE failed: %w", syscall.EBUSY))

		code, ok := audiodev.IsSubsystem(err)
		require.True(t, ok)
		assert.Equal(t, uintptr(syscall.EBUSY), code)
		assert.ErrorIs(t, err, syscall.EBUSY)
		assert.Contains(t, err.Error(), "set mute")
	})

	t.Run("COMCode", func(t *testing.T) {
		err := audiodev.NewSubsystemError("set default endpoint", &hresult{code: 0x80070490})

		code, ok := audiodev.IsSubsystem(err)
		require.True(t, ok)
		assert.Equal(t, uintptr(0x80070490), code)
		assert.Contains(t, err.Error(), "0x80070490")
	})

	t.Run("NoCode", func(t *testing.T) {
		err := audiodev.NewSubsystemError("enumerate", errors.New("plain"))

		code, ok := audiodev.IsSubsystem(err)
		require.True(t, ok)
		assert.Zero(t, code)
	})

	t.Run("NotDoubleWrapped", func(t *testing.T) {
		inner := audiodev.NewSubsystemError("get mute", syscall.ENODEV)
		outer := audiodev.NewSubsystemError("toggle mute", inner)

		assert.Same(t, inner, outer)
	})
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, audiodev.IsNotFound(fmt.Errorf("%w: x", audiodev.ErrNotFound)))
	assert.False(t, audiodev.IsNotFound(errors.New("x")))

	_, ok := audiodev.IsSubsystem(audiodev.ErrNotFound)
	assert.False(t, ok)

	err := audiodev.ValidatePercent(150)
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)
	assert.EqualError(t, err, "invalid volume 150: must be between 0 and 100")

	assert.NoError(t, audiodev.ValidatePercent(0))
	assert.NoError(t, audiodev.ValidatePercent(100))
	assert.NoError(t, audiodev.ValidateOrdinal(audiodev.MaxOrdinal))
	assert.ErrorIs(t, audiodev.ValidateOrdinal(audiodev.MaxOrdinal+1), audiodev.ErrInvalidArgument)
}

func TestParse(t *testing.T) {
	f, err := audiodev.ParseFlow("Capture")
	require.NoError(t, err)
	assert.Equal(t, audiodev.Recording, f)

	r, err := audiodev.ParseRole("communication")
	require.NoError(t, err)
	assert.Equal(t, audiodev.Communications, r)

	_, err = audiodev.ParseFlow("all")
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)

	_, err = audiodev.ParseRole("console")
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)

	assert.Equal(t, 50, audiodev.ScalarToPercent(0.5))
	assert.Equal(t, float32(0.25), audiodev.PercentToScalar(25))
}
