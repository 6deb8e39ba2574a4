package tank

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/store"
	"github.com/sweeney/tank-controller/internal/ui"
)

// mirror keeps a copy of what was last written so the status page can show
// the screen.
type mirror struct {
	lcd.Display
	lines [lcd.Rows]string
}

func (m *mirror) SetLine(row int, text string) {
	if row >= 0 && row < lcd.Rows {
		m.lines[row] = lcd.Pad(text)
	}
	m.Display.SetLine(row, text)
}

// The methods below make Tank the ui.Host of every menu state.

func (t *Tank) RequestTransition(s ui.State) { t.machine.RequestTransition(s) }
func (t *Tank) Now() time.Time               { return t.now() }
func (t *Tank) Display() lcd.Display         { return t.display }
func (t *Tank) Store() store.Store           { return t.store }
func (t *Tank) PH() sensor.PH                { return t.ph }
func (t *Tank) Temp() sensor.Temperature     { return t.temp }
func (t *Tank) Info() ui.DeviceInfo          { return t.opts.Info }
func (t *Tank) Dwell() time.Duration         { return t.opts.Dwell }
func (t *Tank) Log() *zap.SugaredLogger      { return t.log }

func (t *Tank) Controller(loop control.Loop) *control.Controller {
	return t.ctrl[loop]
}

var _ ui.Host = (*Tank)(nil)
