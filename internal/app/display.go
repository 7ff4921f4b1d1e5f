package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// ssd1306.NewI2C always talks to 0x3C.
const ssd1306DefaultAddr = 0x3C

// addrBus redirects transfers for the default SSD1306 address to addr, for
// modules strapped to 0x3D.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b *addrBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DefaultAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// Display renders the latest status on a 128x64 SSD1306.
type Display struct {
	hub      *StatusHub
	busName  string
	addr     uint16
	interval time.Duration
	log      zerolog.Logger
}

func NewDisplay(hub *StatusHub, busName string, addr uint16, interval time.Duration, logger zerolog.Logger) *Display {
	return &Display{
		hub:      hub,
		busName:  busName,
		addr:     addr,
		interval: interval,
		log:      logger.With().Str("component", "display").Logger(),
	}
}

// Run opens the display and refreshes it until ctx is cancelled.
func (d *Display) Run(ctx context.Context) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(d.busName)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, addr: d.addr}, &opts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	d.log.Info().Msgf("display initialized at 0x%02X", d.addr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		d.log.Warn().Err(err).Msg("error showing splash")
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, ok := d.hub.Latest()
			if err := dev.Draw(dev.Bounds(), renderStatus(st, ok), image.Point{}); err != nil {
				d.log.Warn().Err(err).Msg("error updating display")
			}
		}
	}
}

func newPage() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(drawer *font.Drawer, y int, text string) {
	drawer.Dot = fixed.P(0, y)
	drawer.DrawString(text)
}

// statusLines is the text shown for st, one entry per 13px row.
func statusLines(st Status, ok bool) []string {
	if !ok {
		return []string{"GPS Power", "Waiting for fix"}
	}

	power := "OFF"
	if st.Power.Enabled {
		power = "ON"
	}
	sleep := "-"
	if st.Decision != nil {
		if st.Decision.KeepPowered {
			sleep = "keep"
		} else {
			sleep = fmt.Sprintf("%ds", st.Decision.SleepIntervalSeconds)
		}
	}
	return []string{
		fmt.Sprintf("D: %.1f km", st.DistanceKm),
		fmt.Sprintf("GPS: %s %s", power, sleep),
		fmt.Sprintf("%.4f %.4f", st.Location.Latitude, st.Location.Longitude),
		fmt.Sprintf("S %.4f %.4f", st.Spawn.Latitude, st.Spawn.Longitude),
	}
}

func renderStatus(st Status, ok bool) *image1bit.VerticalLSB {
	img, drawer := newPage()
	for i, line := range statusLines(st, ok) {
		drawLine(drawer, 13*(i+1), line)
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newPage()
	drawer.Dot = fixed.P(25, 26)
	drawer.DrawString("GPS Power")
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Looking for")
	drawer.Dot = fixed.P(45, 56)
	drawer.DrawString("sats")
	return img
}
