package lcd

import (
	"fmt"

	"github.com/kidoman/embd"
	"github.com/kidoman/embd/controller/hd44780"
	_ "github.com/kidoman/embd/host/all"
	"github.com/kidoman/embd/interface/display/characterdisplay"
	"go.uber.org/zap"
)

// HD44780 drives a 16x2 panel behind a PCF8574 I2C backpack.
type HD44780 struct {
	ctrl  *hd44780.HD44780
	disp  *characterdisplay.Display
	log   *zap.SugaredLogger
	lines [Rows]string
}

// OpenHD44780 initialises I2C and the panel at addr on the given bus.
func OpenHD44780(bus byte, addr byte, log *zap.SugaredLogger) (*HD44780, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("init i2c: %w", err)
	}
	ctrl, err := hd44780.NewI2C(
		embd.NewI2CBus(bus),
		addr,
		hd44780.PCF8574PinMap,
		hd44780.RowAddress16Col,
		hd44780.TwoLine,
	)
	if err != nil {
		embd.CloseI2C()
		return nil, fmt.Errorf("open hd44780 at 0x%02x: %w", addr, err)
	}
	ctrl.Connection.BacklightOn()

	d := &HD44780{
		ctrl: ctrl,
		disp: characterdisplay.New(ctrl, Cols, Rows),
		log:  log,
	}
	if err := d.disp.Clear(); err != nil {
		d.Close()
		return nil, fmt.Errorf("clear display: %w", err)
	}
	return d, nil
}

// SetLine rewrites a row when its content changed. Panel errors are logged;
// the menu keeps running without a display.
func (d *HD44780) SetLine(row int, text string) {
	if !validRow(row) {
		return
	}
	text = Pad(text)
	if d.lines[row] == text {
		return
	}
	if err := d.disp.SetCursor(0, row); err != nil {
		d.log.Warnw("lcd: set cursor failed", "row", row, "error", err)
		return
	}
	if err := d.disp.Message(text); err != nil {
		d.log.Warnw("lcd: write failed", "row", row, "error", err)
		return
	}
	d.lines[row] = text
}

// Close blanks the panel and releases the bus.
func (d *HD44780) Close() error {
	err := d.disp.Close()
	embd.CloseI2C()
	return err
}
