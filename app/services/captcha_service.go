package services

import (
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
	xdraw "golang.org/x/image/draw"
)

const captchaKeyPrefix = "captcha:"

// CaptchaService guards the admin login with a rotate captcha.
//
// Generate returns a challenge ID plus master and thumb images; the admin UI rotates the thumb
// and submits the angle. A challenge is single-use: it is consumed by the first verification
// whether it passes or not.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   KeyStore
	ttl     time.Duration
	padding int // tolerance in degrees
}

// NewCaptchaServiceRotate constructs a CaptchaService storing target angles in store
func NewCaptchaServiceRotate(store KeyStore, ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if store == nil {
		store = NewMemoryKeyStore(nil)
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   store,
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate captcha: %w", err)
	}

	block := captData.GetData()
	if block == nil {
		return nil, fmt.Errorf("generate captcha: empty block")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()
	if err := s.store.Set(ctx, captchaKeyPrefix+challengeID, strconv.Itoa(block.Angle), s.ttl); err != nil {
		return nil, fmt.Errorf("store captcha: %w", err)
	}

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	key := captchaKeyPrefix + challengeID
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	_ = s.store.Delete(ctx, key)

	target, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}

	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// generateRotateBackgrounds renders small noisy gradients and upscales them to size,
// which keeps generation cheap and gives the images a soft texture.
func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	tile := size / 4
	if tile < 16 {
		tile = 16
	}

	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		src := newNoiseGradientImage(tile, tile)
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
		drawRect(dst, 10, 10, size/3, size/12, color.RGBA{R: 255, G: 255, B: 255, A: 32})
		drawRect(dst, size/2, size/3, size/3, size/10, color.RGBA{R: 0, G: 0, B: 0, A: 24})
		imgs = append(imgs, dst)
	}
	return imgs
}

func newNoiseGradientImage(w, h int) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x - w/2)
			dy := float64(y - h/2)
			t := math.Sqrt(dx*dx+dy*dy) / float64(w/2)
			if t > 1 {
				t = 1
			}
			base := uint8(200 - int(150*t))
			noise := uint8(rand.Intn(30))
			rgba.Set(x, y, color.RGBA{R: base + noise/3, G: base, B: 255 - base/2, A: 255})
		}
	}
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h)
	imagedraw.Draw(dst, rect, &image.Uniform{C: c}, image.Point{}, imagedraw.Over)
}
