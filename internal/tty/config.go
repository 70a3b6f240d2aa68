package tty

// Config contains terminal front-end settings.
type Config struct {
	Audio       bool // play sound through the default output device
	RenderEvery int  // draw every n-th frame; the terminal is the bottleneck
	HoldFrames  int  // frames a key stays down after its byte arrives
	FPS         float64
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.RenderEvery <= 0 {
		c.RenderEvery = 2
	}
	if c.HoldFrames <= 0 {
		c.HoldFrames = 8 // terminals repeat keys at roughly 30 Hz
	}
	if c.FPS <= 0 {
		c.FPS = 59.73
	}
}
