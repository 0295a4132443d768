package proc

import (
	"context"
	"errors"
	"strings"

	"github.com/asticode/go-astiav"
)

const (
	opusSampleRate = 48000
	opusFrameSize  = 960
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any input ffmpeg understands and re-encodes it as
// 20ms stereo Opus packets.
type Transcoder struct {
	inputCtx               *astiav.FormatContext
	decoderCtx, encoderCtx *astiav.CodecContext
	audioStreamIndex       int
	packet                 *astiav.Packet
	frame                  *astiav.Frame
	resampleCtx            *astiav.SoftwareResampleContext
	resampleFrame          *astiav.Frame
	fifo                   *astiav.AudioFifo
	onFrame                func([]byte)
	pts                    int64
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		packet:        astiav.AllocPacket(),
		frame:         astiav.AllocFrame(),
		resampleFrame: astiav.AllocFrame(),
	}
}

// Open prepares input, decoder and encoder for a stream URL or file path.
func (t *Transcoder) Open(in string) error {
	if err := t.openInput(in); err != nil {
		return err
	}
	if err := t.setupDecoder(); err != nil {
		return err
	}
	return t.setupEncoder()
}

func (t *Transcoder) openInput(in string) error {
	t.inputCtx = astiav.AllocFormatContext()
	if t.inputCtx == nil {
		return errors.New("failed to alloc format context")
	}

	var opts *astiav.Dictionary
	if strings.HasPrefix(in, "http") {
		opts = astiav.NewDictionary()
		defer opts.Free()
		opts.Set("reconnect", "1", 0)
		opts.Set("reconnect_streamed", "1", 0)
		opts.Set("reconnect_delay_max", "5", 0)
		opts.Set("timeout", "30000000", 0)
	}
	if err := t.inputCtx.OpenInput(in, nil, opts); err != nil {
		return err
	}
	if err := t.inputCtx.FindStreamInfo(nil); err != nil {
		return err
	}

	t.audioStreamIndex = -1
	for _, s := range t.inputCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.audioStreamIndex = s.Index()
			break
		}
	}
	if t.audioStreamIndex == -1 {
		return errors.New("no audio stream")
	}
	return nil
}

func (t *Transcoder) setupDecoder() error {
	p := t.inputCtx.Streams()[t.audioStreamIndex].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.decoderCtx = astiav.AllocCodecContext(d)
	_ = p.ToCodecContext(t.decoderCtx)
	return t.decoderCtx.Open(d, nil)
}

func (t *Transcoder) setupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no opus encoder")
	}
	t.encoderCtx = astiav.AllocCodecContext(e)
	t.encoderCtx.SetBitRate(128000)
	t.encoderCtx.SetSampleRate(opusSampleRate)
	t.encoderCtx.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoderCtx.SetSampleFormat(astiav.SampleFormatS16)
	t.encoderCtx.SetTimeBase(astiav.NewRational(1, opusSampleRate))

	o := astiav.NewDictionary()
	defer o.Free()
	o.Set("vbr", "on", 0)
	o.Set("compression_level", "10", 0)
	o.Set("frame_size", "20", 0)
	if err := t.encoderCtx.Open(e, o); err != nil {
		return err
	}

	// ConvertFrame configures the resampler from the first decoded frame.
	t.resampleCtx = astiav.AllocSoftwareResampleContext()
	if t.resampleCtx == nil {
		return errors.New("failed to alloc resampler")
	}
	return nil
}

// Transcode pumps the whole input through on, one Opus packet per call, and
// finishes with on(nil). It returns ctx.Err() when cancelled.
func (t *Transcoder) Transcode(ctx context.Context, on func([]byte)) error {
	defer t.packet.Unref()
	t.onFrame = on
	defer func() {
		if t.onFrame != nil {
			t.onFrame(nil)
		}
	}()

	t.fifo = astiav.AllocAudioFifo(t.encoderCtx.SampleFormat(), t.encoderCtx.ChannelLayout().Channels(), opusFrameSize*2)
	defer func() {
		t.fifo.Free()
		t.fifo = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.inputCtx.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return err
		}
		if t.packet.StreamIndex() != t.audioStreamIndex {
			t.packet.Unref()
			continue
		}
		err := t.decoderCtx.SendPacket(t.packet)
		t.packet.Unref()
		if err != nil {
			return err
		}
		t.receiveDecoded()
		t.drainFifo(opusFrameSize)
	}

	_ = t.decoderCtx.SendPacket(nil)
	t.receiveDecoded()
	t.drainFifo(1)

	_ = t.encoderCtx.SendFrame(nil)
	t.emitPackets()
	return nil
}

// receiveDecoded resamples every pending decoded frame into the fifo.
func (t *Transcoder) receiveDecoded() {
	for {
		if err := t.decoderCtx.ReceiveFrame(t.frame); err != nil {
			return
		}
		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()),
			astiav.NewRational(1, t.frame.SampleRate()),
			astiav.NewRational(1, t.encoderCtx.SampleRate())))
		if nb > 0 {
			t.prepareResampleFrame(nb)
			if t.resampleCtx.ConvertFrame(t.frame, t.resampleFrame) == nil {
				_, _ = t.fifo.Write(t.resampleFrame)
			}
		}
		t.frame.Unref()
	}
}

// drainFifo encodes frames while at least threshold samples are buffered.
// The final partial frame is flushed with threshold 1.
func (t *Transcoder) drainFifo(threshold int) {
	for t.fifo.Size() >= threshold && t.fifo.Size() > 0 {
		sz := opusFrameSize
		if t.fifo.Size() < sz {
			sz = t.fifo.Size()
		}
		t.prepareResampleFrame(sz)
		_, _ = t.fifo.Read(t.resampleFrame)
		t.resampleFrame.SetPts(t.pts)
		t.pts += int64(sz)
		if err := t.encoderCtx.SendFrame(t.resampleFrame); err != nil {
			continue
		}
		t.emitPackets()
	}
}

func (t *Transcoder) prepareResampleFrame(nbSamples int) {
	t.resampleFrame.Unref()
	t.resampleFrame.SetNbSamples(nbSamples)
	t.resampleFrame.SetChannelLayout(t.encoderCtx.ChannelLayout())
	t.resampleFrame.SetSampleFormat(t.encoderCtx.SampleFormat())
	t.resampleFrame.SetSampleRate(t.encoderCtx.SampleRate())
	_ = t.resampleFrame.AllocBuffer(0)
}

func (t *Transcoder) emitPackets() {
	for {
		p := astiav.AllocPacket()
		if t.encoderCtx.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		if t.onFrame != nil {
			d := p.Data()
			fd := make([]byte, len(d))
			copy(fd, d)
			t.onFrame(fd)
		}
		p.Free()
	}
}

func (t *Transcoder) Close() {
	if t.resampleCtx != nil {
		t.resampleCtx.Free()
	}
	if t.resampleFrame != nil {
		t.resampleFrame.Free()
	}
	if t.packet != nil {
		t.packet.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.decoderCtx != nil {
		t.decoderCtx.Free()
	}
	if t.encoderCtx != nil {
		t.encoderCtx.Free()
	}
	if t.inputCtx != nil {
		t.inputCtx.CloseInput()
		t.inputCtx.Free()
	}
}
