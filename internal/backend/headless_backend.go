//go:build headless

package backend

// HeadlessDevice drives a Driver without touching any real audio device,
// for tests and batch/offline rendering. Grounded on the teacher's
// audio_backend_headless.go no-op stub.
type HeadlessDevice struct {
	driver    *Driver
	blockSize int
}

func NewOtoDevice(driver *Driver, sampleRate, channels, blockSize int) (*HeadlessDevice, error) {
	return &HeadlessDevice{driver: driver, blockSize: blockSize}, nil
}

func (d *HeadlessDevice) Start() {}

func (d *HeadlessDevice) Stop() error { return nil }

// RenderN pumps n blocks through the driver and returns nothing; callers
// that want the samples should call Driver.ProcessBlock directly.
func (d *HeadlessDevice) RenderN(n int) {
	for i := 0; i < n; i++ {
		d.driver.ProcessBlock(d.blockSize)
	}
}
