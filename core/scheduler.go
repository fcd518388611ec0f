package core

// Stats counts scheduler activity
type Stats struct {
	Cycles      uint32 // Completed transmit cycles
	Waves       uint32 // Start waves in the last completed cycle
	Starts      uint32 // Transmitters started, all cycles
	Completions uint32 // Done events acted on, all cycles
	Refills     uint32 // Threshold refills, all cycles
	Spurious    uint32 // Events dropped because nothing was bound
	Faults      uint32 // Channel configuration failures
	MaxBusy     int    // Most channels busy at the same time
}

// Scheduler multiplexes the registered transmitters over the driver's
// channels. It starts as many transmitters as there are channels, then
// hands each channel to the next waiting transmitter the moment the
// previous one finishes.
//
// Threading contract: Register, Load, Show and ShowPixels belong to a
// single main-line goroutine. HandleInterrupt is the only entry point for
// the interrupt context. The channel table, the FIFO cursor and the
// started/done counters are written by the main-line only while no channel
// of the cycle is running (and with interrupts masked); from the first
// Start until the barrier is released they belong to the interrupt context.
type Scheduler struct {
	cfg      Config
	driver   ChannelDriver
	fill     int
	channels int

	// Transmitter arena. Allocated once, never grows.
	arena []Transmitter
	count int

	// Interrupt-owned while a cycle is running
	onChannel [MaxStatusChannel]Handle
	next      int
	started   int
	done      int
	waves     uint32
	stats     Stats

	// Main-line only
	loaded  int
	barrier *CompletionBarrier
}

// NewScheduler binds a scheduler to a channel driver and installs its
// interrupt handler
func NewScheduler(cfg Config, driver ChannelDriver) (*Scheduler, error) {
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	channels := cfg.MaxChannels
	if n := driver.NumChannels(); n < channels {
		channels = n
	}
	if channels > MaxStatusChannel {
		channels = MaxStatusChannel
	}
	if channels <= 0 {
		return nil, ErrNoChannels
	}

	s := &Scheduler{
		cfg:      cfg,
		driver:   driver,
		fill:     cfg.PulsesPerFill(),
		channels: channels,
		arena:    make([]Transmitter, cfg.MaxTransmitters),
		barrier:  NewCompletionBarrier(),
	}
	for i := range s.onChannel {
		s.onChannel[i] = NoHandle
	}

	if cfg.Mode == ModeIncremental {
		for ch := 0; ch < channels; ch++ {
			buf := driver.Buffer(ch)
			if buf == nil || buf.Cap() < 2*s.fill {
				return nil, ErrBufferGeometry
			}
		}
	}

	driver.SetInterruptHandler(s.HandleInterrupt)
	return s, nil
}

// Config returns the effective configuration
func (s *Scheduler) Config() Config { return s.cfg }

// Channels returns the size of the channel pool in use
func (s *Scheduler) Channels() int { return s.channels }

// Count returns the number of registered transmitters
func (s *Scheduler) Count() int { return s.count }

// Register adds a transmitter for the given pin and timing. The table is
// fixed in size; registering past it fails.
func (s *Scheduler) Register(pin Pin, timing Timing) (Handle, error) {
	if s.barrier.Busy() {
		return NoHandle, ErrCycleInFlight
	}
	if s.count >= len(s.arena) {
		return NoHandle, ErrTooManyTransmitters
	}

	wave, err := NewWaveform(timing, s.cfg.Clock, s.cfg.ResetNs)
	if err != nil {
		return NoHandle, err
	}

	h := Handle(s.count)
	s.arena[h] = Transmitter{
		handle:  h,
		pin:     pin,
		timing:  timing,
		wave:    wave,
		mode:    s.cfg.Mode,
		fill:    s.fill,
		colors:  s.cfg.ColorChannels,
		channel: -1,
	}
	s.count++
	return h, nil
}

// MustRegister is Register for static setups; running out of table space
// is a configuration error.
func (s *Scheduler) MustRegister(pin Pin, timing Timing) Handle {
	h, err := s.Register(pin, timing)
	if err != nil {
		panic(err)
	}
	return h
}

// Reset forgets every registered transmitter. Precomputed frame buffers
// are dropped with them.
func (s *Scheduler) Reset() error {
	if s.barrier.Busy() {
		return ErrCycleInFlight
	}
	for i := range s.arena {
		s.arena[i] = Transmitter{}
	}
	s.count = 0
	return nil
}

// Transmitter returns the record behind a handle, or nil
func (s *Scheduler) Transmitter(h Handle) *Transmitter {
	if int(h) >= s.count {
		return nil
	}
	return &s.arena[h]
}

// Load attaches this cycle's pixel data to a transmitter. The first Load
// of a cycle waits for the previous cycle to finish.
func (s *Scheduler) Load(h Handle, src PixelSource) error {
	if src == nil {
		return ErrNilSource
	}
	if int(h) >= s.count {
		return ErrBadHandle
	}
	t := &s.arena[h]
	if t.loaded {
		return ErrAlreadyLoaded
	}

	if s.loaded == 0 {
		s.barrier.Begin()
	}
	t.pixels = src
	t.loaded = true
	s.loaded++

	if t.mode == ModePrecompute {
		t.convertAll()
	}

	state := disableInterrupts()
	recordEvent(EvtLoad, h, -1, uint32(s.loaded))
	restoreInterrupts(state)
	return nil
}

// ShowPixels loads one transmitter; the call that loads the last one
// transmits everything and blocks until the cycle completes.
func (s *Scheduler) ShowPixels(h Handle, src PixelSource) error {
	if err := s.Load(h, src); err != nil {
		return err
	}
	if s.loaded == s.count {
		return s.Show()
	}
	return nil
}

// Show transmits every loaded transmitter and blocks until the last one
// reports completion. All registered transmitters must be loaded.
func (s *Scheduler) Show() error {
	if s.count == 0 {
		return ErrNoTransmitters
	}
	if s.loaded != s.count {
		return ErrIncompleteCycle
	}

	state := disableInterrupts()
	s.next = 0
	s.started = 0
	s.done = 0
	s.waves = 0

	// Prime every channel we can, then start them together
	n := 0
	for n < s.channels && s.next < s.count {
		s.startNext(n)
		n++
	}
	for ch := 0; ch < n; ch++ {
		s.driver.Start(ch)
	}
	restoreInterrupts(state)

	// Refill and reassignment happen in the interrupt context from here
	s.barrier.Wait()

	state = disableInterrupts()
	s.finishCycle()
	restoreInterrupts(state)

	s.barrier.End()
	return nil
}

// HandleInterrupt is the interrupt trampoline. It decodes the status word
// and refills or retires each channel that raised an event. Events for
// channels with nothing bound are dropped.
func (s *Scheduler) HandleInterrupt(status uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for ch := 0; ch < MaxStatusChannel; ch++ {
		thr := status&TxThresholdBit(ch) != 0
		done := status&TxDoneBit(ch) != 0
		if !thr && !done {
			continue
		}

		if s.onChannel[ch] == NoHandle {
			s.stats.Spurious++
			recordEvent(EvtSpurious, NoHandle, ch, status)
			continue
		}

		if thr {
			s.refill(ch)
		}
		if done {
			s.doneOnChannel(ch)
		}
	}
}

// HandleRefill delivers a single threshold event
func (s *Scheduler) HandleRefill(ch int) {
	if ch < 0 || ch >= MaxStatusChannel {
		return
	}
	s.HandleInterrupt(TxThresholdBit(ch))
}

// HandleDone delivers a single transmission-complete event
func (s *Scheduler) HandleDone(ch int) {
	if ch < 0 || ch >= MaxStatusChannel {
		return
	}
	s.HandleInterrupt(TxDoneBit(ch))
}

// startNext binds the next waiting transmitter to ch and primes it.
// Caller holds the interrupt mask.
func (s *Scheduler) startNext(ch int) {
	if s.next >= s.count {
		return
	}
	h := Handle(s.next)
	t := &s.arena[h]
	s.next++

	if s.started%s.channels == 0 {
		s.waves++
	}
	s.started++
	s.stats.Starts++
	if busy := s.started - s.done; busy > s.stats.MaxBusy {
		s.stats.MaxBusy = busy
	}

	s.onChannel[ch] = h
	s.startOnChannel(t, ch)
	recordEvent(EvtStart, h, ch, s.waves)
}

// startOnChannel arms the channel and loads the first data. It does not
// start the hardware.
func (s *Scheduler) startOnChannel(t *Transmitter, ch int) {
	if err := s.driver.Configure(ch, t.pin, s.cfg.Clock.Divider); err != nil {
		s.stats.Faults++
	}

	switch t.mode {
	case ModeIncremental:
		t.bind(ch, s.driver.Buffer(ch))
		// Two fills: one being sent, one queued behind it
		t.fillNext()
		t.fillNext()
		s.driver.SetRefillThreshold(ch, s.fill)
	case ModePrecompute:
		t.channel = ch
		s.driver.SetRefillThreshold(ch, 0)
		if err := s.driver.WriteFrame(ch, t.Frame()); err != nil {
			s.stats.Faults++
		}
	}
}

// refill regenerates the half the hardware just drained
func (s *Scheduler) refill(ch int) {
	h := s.onChannel[ch]
	t := &s.arena[h]
	if t.mode == ModeIncremental {
		t.fillNext()
	}
	s.stats.Refills++
	recordEvent(EvtRefill, h, ch, uint32(t.cur))
}

// doneOnChannel retires the transmitter on ch and either releases the
// barrier or starts the next waiting transmitter on the same channel
func (s *Scheduler) doneOnChannel(ch int) {
	h := s.onChannel[ch]
	s.driver.Stop(ch)
	s.onChannel[ch] = NoHandle
	s.done++
	s.stats.Completions++
	recordEvent(EvtDone, h, ch, uint32(s.done))

	if s.done == s.count {
		recordEvent(EvtRelease, h, ch, s.waves)
		s.barrier.Release()
		return
	}
	if s.next < s.count {
		s.startNext(ch)
		s.driver.Start(ch)
	}
}

// finishCycle puts every counter back to its initial value.
// Caller holds the interrupt mask.
func (s *Scheduler) finishCycle() {
	s.stats.Cycles++
	s.stats.Waves = s.waves
	for i := 0; i < s.count; i++ {
		s.arena[i].reset()
	}
	for i := range s.onChannel {
		s.onChannel[i] = NoHandle
	}
	s.next = 0
	s.started = 0
	s.done = 0
	s.waves = 0
	s.loaded = 0
}

// Busy returns how many channels currently hold a transmitter
func (s *Scheduler) Busy() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.started - s.done
}

// Pending returns how many transmitters of the running cycle are still
// waiting for a channel. Zero outside a cycle.
func (s *Scheduler) Pending() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if s.started == 0 {
		return 0
	}
	return s.count - s.next
}

// Stats returns a snapshot of the counters
func (s *Scheduler) Stats() Stats {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.stats
}
