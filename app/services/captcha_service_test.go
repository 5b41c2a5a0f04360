package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRotateBackgrounds_Size(t *testing.T) {
	imgs := generateRotateBackgrounds(2, 120)
	require.Len(t, imgs, 2)
	for _, img := range imgs {
		assert.Equal(t, 120, img.Bounds().Dx())
		assert.Equal(t, 120, img.Bounds().Dy())
	}
}

func TestCaptchaVerify_ChallengeIsSingleUse(t *testing.T) {
	store := NewMemoryKeyStore(nil)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, captchaKeyPrefix+"fixed", "90", time.Minute))

	// the submitted angle undoes the stored rotation: 90 + 268 lands within the padding of 360
	assert.True(t, svc.VerifyRotate(ctx, "fixed", 268.4))
	assert.False(t, svc.VerifyRotate(ctx, "fixed", 270), "consumed challenge must not verify again")
}

func TestCaptchaVerify_WrongAngleConsumes(t *testing.T) {
	store := NewMemoryKeyStore(nil)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, captchaKeyPrefix+"c1", "200", time.Minute))

	assert.False(t, svc.VerifyRotate(ctx, "c1", 10))
	_, found, _ := store.Get(ctx, captchaKeyPrefix+"c1")
	assert.False(t, found)
}

func TestCaptchaVerify_UnknownChallenge(t *testing.T) {
	svc, err := NewCaptchaServiceRotate(nil, time.Minute, 5, 160)
	require.NoError(t, err)
	assert.False(t, svc.VerifyRotate(context.Background(), "missing", 0))
}
