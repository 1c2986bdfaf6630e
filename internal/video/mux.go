package video

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// timescale is the MP4 movie/track timescale, matching the original
// muxer's fixed choice.
const timescale = 1000

// nalType returns the low 5 bits of an Annex-B NAL unit's header byte.
func nalType(nal []byte) byte {
	if len(nal) == 0 {
		return 0
	}
	return nal[0] & 0x1f
}

const (
	nalSPS = 7
	nalPPS = 8
	nalIDR = 5
)

// splitAnnexB scans a byte stream for 3-byte (0x00 0x00 0x01) or 4-byte
// (0x00 0x00 0x00 0x01) start codes and returns the NAL units between
// them, start codes stripped — a direct port of the original muxer's
// parse_annexb_nals scanner.
func splitAnnexB(stream []byte) [][]byte {
	var nals [][]byte
	starts := findStartCodes(stream)
	for i, start := range starts {
		end := len(stream)
		if i+1 < len(starts) {
			end = starts[i+1].codeStart
		}
		nal := stream[start.nalStart:end]
		nal = bytes.TrimRight(nal, "\x00")
		if len(nal) > 0 {
			nals = append(nals, nal)
		}
	}
	return nals
}

type startCode struct {
	codeStart int
	nalStart  int
}

func findStartCodes(stream []byte) []startCode {
	var out []startCode
	i := 0
	for i+2 < len(stream) {
		if stream[i] == 0 && stream[i+1] == 0 {
			if stream[i+2] == 1 {
				out = append(out, startCode{codeStart: i, nalStart: i + 3})
				i += 3
				continue
			}
			if i+3 < len(stream) && stream[i+2] == 0 && stream[i+3] == 1 {
				out = append(out, startCode{codeStart: i, nalStart: i + 4})
				i += 4
				continue
			}
		}
		i++
	}
	return out
}

// frame is one encoded video access unit: its AVCC-reframed sample
// bytes (SPS/PPS excluded), whether it contains an IDR slice (sync
// sample), in encode/presentation order.
type frame struct {
	sample []byte
	sync   bool
}

// Mux accumulates encoded frames and writes a complete MP4 on Finish.
type Mux struct {
	width, height int
	fps           int

	sps, pps []byte
	frames   []frame
}

// NewMux builds an empty muxer for a canvas of the given dimensions at
// fps frames per second.
func NewMux(width, height, fps int) *Mux {
	return &Mux{width: width, height: height, fps: fps}
}

// AddAnnexB splits one encoder output chunk into NAL units, captures the
// first SPS/PPS it sees, and appends a sample built from the remaining
// (non-parameter-set) NALs.
func (m *Mux) AddAnnexB(stream []byte) {
	nals := splitAnnexB(stream)
	var sample bytes.Buffer
	sync := false

	for _, nal := range nals {
		switch nalType(nal) {
		case nalSPS:
			if m.sps == nil {
				m.sps = append([]byte(nil), nal...)
			}
			continue
		case nalPPS:
			if m.pps == nil {
				m.pps = append([]byte(nil), nal...)
			}
			continue
		case nalIDR:
			sync = true
		}
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(nal)))
		sample.Write(lenPrefix[:])
		sample.Write(nal)
	}

	if sample.Len() == 0 {
		return
	}
	m.frames = append(m.frames, frame{sample: sample.Bytes(), sync: sync})
}

// Finish returns the complete MP4 (ftyp + moov + mdat) as one byte slice.
func (m *Mux) Finish() ([]byte, error) {
	if m.sps == nil || m.pps == nil {
		return nil, fmt.Errorf("video: mux: no SPS/PPS captured from encoder output")
	}
	if len(m.frames) == 0 {
		return nil, fmt.Errorf("video: mux: no frames to mux")
	}

	ftyp := box("ftyp", ftypBody())
	mdatBody := m.mdatBody()
	moov := box("moov", m.moovBody(len(ftyp)))
	mdat := box("mdat", mdatBody)

	var out bytes.Buffer
	out.Write(ftyp)
	out.Write(moov)
	out.Write(mdat)
	return out.Bytes(), nil
}

func (m *Mux) mdatBody() []byte {
	var buf bytes.Buffer
	for _, f := range m.frames {
		buf.Write(f.sample)
	}
	return buf.Bytes()
}

func box(kind string, body []byte) []byte {
	var b bytes.Buffer
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(8+len(body)))
	b.Write(size[:])
	b.WriteString(kind)
	b.Write(body)
	return b.Bytes()
}

func ftypBody() []byte {
	var b bytes.Buffer
	b.WriteString("isom")
	var minor [4]byte
	binary.BigEndian.PutUint32(minor[:], 0)
	b.Write(minor[:])
	for _, brand := range []string{"isom", "iso2", "avc1", "mp41"} {
		b.WriteString(brand)
	}
	return b.Bytes()
}

// moovBody builds the movie box: mvhd + a single AVC video trak.
// ftypSize is the size of the ftyp box that precedes moov; stco adds it to
// the moov size and the mdat header to get the first sample's offset.
func (m *Mux) moovBody(ftypSize int) []byte {
	durationUnits := uint32(len(m.frames)) * uint32(timescale/m.fps)

	var b bytes.Buffer
	b.Write(box("mvhd", mvhdBody(durationUnits)))
	b.Write(box("trak", m.trakBody(ftypSize, durationUnits)))
	return b.Bytes()
}

func mvhdBody(duration uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0) // version
	b.Write([]byte{0, 0, 0})
	write32(&b, 0) // creation time
	write32(&b, 0) // modification time
	write32(&b, timescale)
	write32(&b, duration)
	write32(&b, 0x00010000) // rate 1.0
	write16(&b, 0x0100)     // volume 1.0
	write16(&b, 0)          // reserved
	write32(&b, 0)
	write32(&b, 0)
	for _, v := range identityMatrix {
		write32(&b, v)
	}
	for i := 0; i < 6; i++ {
		write32(&b, 0) // pre_defined
	}
	write32(&b, 2) // next_track_id
	return b.Bytes()
}

var identityMatrix = []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

func (m *Mux) trakBody(ftypSize int, duration uint32) []byte {
	var b bytes.Buffer
	b.Write(box("tkhd", m.tkhdBody(duration)))
	b.Write(box("mdia", m.mdiaBody(ftypSize, duration)))
	return b.Bytes()
}

func (m *Mux) tkhdBody(duration uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	b.Write([]byte{0, 0, 7}) // flags: enabled | in movie | in preview
	write32(&b, 0)           // creation time
	write32(&b, 0)           // modification time
	write32(&b, 1)           // track id
	write32(&b, 0)           // reserved
	write32(&b, duration)
	for i := 0; i < 2; i++ {
		write32(&b, 0) // reserved
	}
	write16(&b, 0) // layer
	write16(&b, 0) // alternate group
	write16(&b, 0) // volume (video)
	write16(&b, 0) // reserved
	for _, v := range identityMatrix {
		write32(&b, v)
	}
	write32(&b, uint32(m.width)<<16)
	write32(&b, uint32(m.height)<<16)
	return b.Bytes()
}

func (m *Mux) mdiaBody(ftypSize int, duration uint32) []byte {
	var b bytes.Buffer
	b.Write(box("mdhd", mdhdBody(duration)))
	b.Write(box("hdlr", hdlrBody()))
	b.Write(box("minf", m.minfBody(ftypSize)))
	return b.Bytes()
}

func mdhdBody(duration uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	b.Write([]byte{0, 0, 0})
	write32(&b, 0)
	write32(&b, 0)
	write32(&b, timescale)
	write32(&b, duration)
	write16(&b, 0x55c4) // language "und"
	write16(&b, 0)
	return b.Bytes()
}

func hdlrBody() []byte {
	var b bytes.Buffer
	write32(&b, 0)
	write32(&b, 0)
	b.WriteString("vide")
	for i := 0; i < 3; i++ {
		write32(&b, 0)
	}
	b.WriteString("wows-timelapse\x00")
	return b.Bytes()
}

func (m *Mux) minfBody(ftypSize int) []byte {
	var b bytes.Buffer
	b.Write(box("vmhd", vmhdBody()))
	b.Write(box("dinf", dinfBody()))
	b.Write(box("stbl", m.stblBody(ftypSize)))
	return b.Bytes()
}

func vmhdBody() []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	b.Write([]byte{0, 0, 1})
	write16(&b, 0)
	write16(&b, 0)
	write16(&b, 0)
	write16(&b, 0)
	return b.Bytes()
}

func dinfBody() []byte {
	return box("dref", drefBody())
}

func drefBody() []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	b.Write([]byte{0, 0, 0})
	write32(&b, 1) // entry_count
	var url bytes.Buffer
	url.WriteByte(0)
	url.Write([]byte{0, 0, 1}) // self-contained flag
	b.Write(box("url ", url.Bytes()))
	return b.Bytes()
}

func (m *Mux) stblBody(ftypSize int) []byte {
	var b bytes.Buffer
	b.Write(box("stsd", m.stsdBody()))
	b.Write(box("stts", m.sttsBody()))
	b.Write(box("stsc", stscBody()))
	b.Write(box("stsz", m.stszBody()))
	b.Write(box("stco", m.stcoBody(ftypSize)))
	b.Write(box("stss", m.stssBody()))
	return b.Bytes()
}

func (m *Mux) stsdBody() []byte {
	var b bytes.Buffer
	write32(&b, 0) // version/flags
	write32(&b, 1) // entry_count
	b.Write(box("avc1", m.avc1Body()))
	return b.Bytes()
}

func (m *Mux) avc1Body() []byte {
	var b bytes.Buffer
	for i := 0; i < 6; i++ {
		b.WriteByte(0) // reserved
	}
	write16(&b, 1) // data_reference_index
	write16(&b, 0) // pre_defined
	write16(&b, 0) // reserved
	for i := 0; i < 3; i++ {
		write32(&b, 0) // pre_defined
	}
	write16(&b, uint16(m.width))
	write16(&b, uint16(m.height))
	write32(&b, 0x00480000) // horizresolution 72dpi
	write32(&b, 0x00480000) // vertresolution 72dpi
	write32(&b, 0)          // reserved
	write16(&b, 1)          // frame_count
	for i := 0; i < 32; i++ {
		b.WriteByte(0) // compressorname
	}
	write16(&b, 0x0018) // depth
	write16(&b, 0xffff) // pre_defined
	b.Write(box("avcC", m.avcCBody()))
	return b.Bytes()
}

func (m *Mux) avcCBody() []byte {
	var b bytes.Buffer
	b.WriteByte(1)          // configurationVersion
	b.WriteByte(m.sps[1])   // AVCProfileIndication
	b.WriteByte(m.sps[2])   // profile_compatibility
	b.WriteByte(m.sps[3])   // AVCLevelIndication
	b.WriteByte(0xff)       // lengthSizeMinusOne=3 | reserved bits
	b.WriteByte(0xe1)       // numOfSPS=1 | reserved bits
	write16(&b, uint16(len(m.sps)))
	b.Write(m.sps)
	b.WriteByte(1) // numOfPPS
	write16(&b, uint16(len(m.pps)))
	b.Write(m.pps)
	return b.Bytes()
}

func (m *Mux) sttsBody() []byte {
	var b bytes.Buffer
	write32(&b, 0)
	write32(&b, 1) // entry_count
	write32(&b, uint32(len(m.frames)))
	write32(&b, uint32(timescale/m.fps))
	return b.Bytes()
}

func stscBody() []byte {
	var b bytes.Buffer
	write32(&b, 0)
	write32(&b, 1) // entry_count
	write32(&b, 1) // first_chunk
	write32(&b, 1) // samples_per_chunk
	write32(&b, 1) // sample_description_index
	return b.Bytes()
}

func (m *Mux) stszBody() []byte {
	var b bytes.Buffer
	write32(&b, 0)
	write32(&b, 0) // sample_size (0 == variable, use table)
	write32(&b, uint32(len(m.frames)))
	for _, f := range m.frames {
		write32(&b, uint32(len(f.sample)))
	}
	return b.Bytes()
}

func (m *Mux) stcoBody(ftypSize int) []byte {
	var b bytes.Buffer
	write32(&b, 0)
	write32(&b, uint32(len(m.frames)))

	// Chunk offsets are absolute file offsets into mdat's payload;
	// moov's size must already be known, computed by laying the movie
	// box out once before this box so its own size is stable.
	moovSize := m.placeholderMoovSize()
	offset := uint32(ftypSize) + uint32(moovSize) + 8 // +8 for mdat header

	for _, f := range m.frames {
		write32(&b, offset)
		offset += uint32(len(f.sample))
	}
	return b.Bytes()
}

// placeholderMoovSize recomputes the movie box's total size by building
// it once with a zero stco (same length as the final one — stco's
// encoded size does not depend on the offsets it holds, only their
// count), so stco's own offsets can reference a stable mdat start.
func (m *Mux) placeholderMoovSize() int {
	durationUnits := uint32(len(m.frames)) * uint32(timescale/m.fps)
	var b bytes.Buffer
	b.Write(box("mvhd", mvhdBody(durationUnits)))

	var trak bytes.Buffer
	trak.Write(box("tkhd", m.tkhdBody(durationUnits)))

	var mdia bytes.Buffer
	mdia.Write(box("mdhd", mdhdBody(durationUnits)))
	mdia.Write(box("hdlr", hdlrBody()))

	var minf bytes.Buffer
	minf.Write(box("vmhd", vmhdBody()))
	minf.Write(box("dinf", dinfBody()))

	var stbl bytes.Buffer
	stbl.Write(box("stsd", m.stsdBody()))
	stbl.Write(box("stts", m.sttsBody()))
	stbl.Write(box("stsc", stscBody()))
	stbl.Write(box("stsz", m.stszBody()))
	stbl.Write(box("stss", m.stssBody()))

	zeroStco := make([]byte, 8+4*len(m.frames))
	stbl.Write(box("stco", zeroStco))

	minf.Write(box("stbl", stbl.Bytes()))
	mdia.Write(box("minf", minf.Bytes()))
	trak.Write(box("mdia", mdia.Bytes()))
	b.Write(box("trak", trak.Bytes()))

	return len(box("moov", b.Bytes()))
}

func (m *Mux) stssBody() []byte {
	var b bytes.Buffer
	write32(&b, 0)
	var syncIdx []uint32
	for i, f := range m.frames {
		if f.sync {
			syncIdx = append(syncIdx, uint32(i+1))
		}
	}
	write32(&b, uint32(len(syncIdx)))
	for _, idx := range syncIdx {
		write32(&b, idx)
	}
	return b.Bytes()
}

func write32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func write16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}
