// Package gpu runs the bleed flood fill as compute shader passes on a
// Vulkan device. It implements the bleed.Accelerator contract: the output
// is interchangeable with the CPU jump flood at the blob level.
package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/cardforge/cardforge/internal/constants"
)

// floodStage identifies one of the three compute stages of the flood fill.
type floodStage int

const (
	stageInit floodStage = iota
	stageStep
	stageColorize
	stageCount
)

func (s floodStage) String() string {
	switch s {
	case stageInit:
		return "flood_init"
	case stageStep:
		return "flood_step"
	case stageColorize:
		return "flood_colorize"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

const (
	// workgroupSize matches @workgroup_size in every shader.
	workgroupSize = 256

	// fenceTimeout bounds the wait for a submitted flood fill.
	fenceTimeout = 5 * time.Second

	// paramsSize is the byte size of the Params uniform: 8 u32 fields.
	paramsSize = 32
)

// Accelerator holds a compute device and the three flood-fill pipelines.
// It is safe for concurrent use; dispatches are serialized on one queue.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	modules         [stageCount]hal.ShaderModule
	bgLayouts       [stageCount]hal.BindGroupLayout
	pipelineLayouts [stageCount]hal.PipelineLayout
	pipelines       [stageCount]hal.ComputePipeline

	ready bool
}

// New opens a GPU device and compiles the flood-fill pipelines. An error
// means no usable device; callers fall back to the CPU path.
func New() (*Accelerator, error) {
	instance, device, queue, name, err := acquireDevice()
	if err != nil {
		return nil, fmt.Errorf("flood accelerator: %w", err)
	}

	a := &Accelerator{
		instance: instance,
		device:   device,
		queue:    queue,
	}
	if err := a.initPipelines(); err != nil {
		a.Close()
		return nil, fmt.Errorf("flood accelerator: %w", err)
	}
	a.ready = true

	slog.Debug("flood accelerator: GPU initialized", "adapter", name)
	return a, nil
}

// initPipelines compiles the WGSL stages and builds one compute pipeline
// per stage. All stages share the same binding shape: a Params uniform at
// binding 0, a read-only storage buffer at 1 and a read-write one at 2.
func (a *Accelerator) initPipelines() error {
	sources := [stageCount]string{
		stageInit:     floodInitWGSL,
		stageStep:     floodStepWGSL,
		stageColorize: floodColorizeWGSL,
	}

	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		},
	}

	for i := floodStage(0); i < stageCount; i++ {
		module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  i.String(),
			Source: hal.ShaderSource{WGSL: sources[i]},
		})
		if err != nil {
			return fmt.Errorf("create shader module for %s: %w", i, err)
		}
		a.modules[i] = module

		bgLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   i.String() + "_bgl",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create bind group layout for %s: %w", i, err)
		}
		a.bgLayouts[i] = bgLayout

		pipelineLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            i.String() + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			return fmt.Errorf("create pipeline layout for %s: %w", i, err)
		}
		a.pipelineLayouts[i] = pipelineLayout

		pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  i.String(),
			Layout: pipelineLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			return fmt.Errorf("create compute pipeline for %s: %w", i, err)
		}
		a.pipelines[i] = pipeline
	}

	return nil
}

// Close releases all GPU resources. The accelerator must not be used after.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := floodStage(0); i < stageCount; i++ {
		if a.pipelines[i] != nil {
			a.device.DestroyComputePipeline(a.pipelines[i])
			a.pipelines[i] = nil
		}
		if a.pipelineLayouts[i] != nil {
			a.device.DestroyPipelineLayout(a.pipelineLayouts[i])
			a.pipelineLayouts[i] = nil
		}
		if a.bgLayouts[i] != nil {
			a.device.DestroyBindGroupLayout(a.bgLayouts[i])
			a.bgLayouts[i] = nil
		}
		if a.modules[i] != nil {
			a.device.DestroyShaderModule(a.modules[i])
			a.modules[i] = nil
		}
	}

	if a.device != nil {
		a.device.Destroy()
		a.device = nil
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	a.queue = nil
	a.ready = false
}

// floodParams mirrors the Params uniform in the WGSL shaders: 8 consecutive
// u32 fields in the same order.
type floodParams struct {
	width         uint32
	height        uint32
	step          uint32
	seedThreshold uint32
	fillThreshold uint32
	darken        uint32
	darkThreshold uint32
	pad           uint32
}

func (p floodParams) toBytes() []byte {
	buf := make([]byte, paramsSize)
	for i, v := range [8]uint32{
		p.width, p.height, p.step, p.seedThreshold,
		p.fillThreshold, p.darken, p.darkThreshold, p.pad,
	} {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// stepSchedule returns the halving JFA step sizes for a grid whose longest
// side is maxDim: the largest power of two below maxDim down to 1.
func stepSchedule(maxDim int) []uint32 {
	if maxDim <= 1 {
		return nil
	}
	step := 1
	for step < maxDim {
		step <<= 1
	}
	var steps []uint32
	for step >>= 1; step >= 1; step >>= 1 {
		steps = append(steps, uint32(step))
	}
	return steps
}

// workgroups returns the 1D dispatch size covering n elements.
func workgroups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

// floodBuffers tracks per-dispatch GPU resources for cleanup.
type floodBuffers struct {
	device hal.Device

	pixels   hal.Buffer
	seedsA   hal.Buffer
	seedsB   hal.Buffer
	staging  hal.Buffer
	uniforms []hal.Buffer

	bindGroups []hal.BindGroup
	cmdBuf     hal.CommandBuffer
	fence      hal.Fence
}

func (f *floodBuffers) cleanup() {
	if f.fence != nil {
		f.device.DestroyFence(f.fence)
	}
	if f.cmdBuf != nil {
		f.device.FreeCommandBuffer(f.cmdBuf)
	}
	for _, g := range f.bindGroups {
		f.device.DestroyBindGroup(g)
	}
	for _, u := range f.uniforms {
		f.device.DestroyBuffer(u)
	}
	for _, b := range []hal.Buffer{f.pixels, f.seedsA, f.seedsB, f.staging} {
		if b != nil {
			f.device.DestroyBuffer(b)
		}
	}
}

// FloodFill runs the three-stage flood fill over img in place. Implements
// the same contract as the CPU path: pixels with alpha >= seedThreshold act
// as seeds, pixels below fillThreshold adopt their nearest seed's RGB and
// become opaque. The whole sequence is encoded once and submitted with a
// single fence wait.
func (a *Accelerator) FloodFill(img *image.NRGBA, seedThreshold, fillThreshold uint8, darkenNearBlack bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return fmt.Errorf("flood accelerator: not initialized")
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	n := w * h
	pixelBytes := packPixels(img)

	bufs := &floodBuffers{device: a.device}
	defer bufs.cleanup()

	if err := a.allocateBuffers(bufs, pixelBytes); err != nil {
		return err
	}

	maxDim := w
	if h > maxDim {
		maxDim = h
	}
	steps := stepSchedule(maxDim)

	base := floodParams{
		width:         uint32(w),
		height:        uint32(h),
		seedThreshold: uint32(seedThreshold),
		fillThreshold: uint32(fillThreshold),
		darkThreshold: constants.NearBlackThreshold,
	}
	if darkenNearBlack {
		base.darken = 1
	}

	if err := a.encodePasses(bufs, base, steps, n); err != nil {
		return err
	}

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("flood accelerator: create fence: %w", err)
	}
	bufs.fence = fence

	if err := a.queue.Submit([]hal.CommandBuffer{bufs.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("flood accelerator: submit: %w", err)
	}
	ok, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("flood accelerator: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("flood accelerator: GPU timeout after %v", fenceTimeout)
	}

	readback := make([]byte, len(pixelBytes))
	if err := a.queue.ReadBuffer(bufs.staging, 0, readback); err != nil {
		return fmt.Errorf("flood accelerator: readback: %w", err)
	}
	unpackPixels(img, readback)
	return nil
}

// allocateBuffers creates the pixel, seed and staging buffers for one run.
func (a *Accelerator) allocateBuffers(bufs *floodBuffers, pixelBytes []byte) error {
	size := uint64(len(pixelBytes))

	var err error
	bufs.pixels, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "flood_pixels",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("flood accelerator: create pixel buffer: %w", err)
	}
	a.queue.WriteBuffer(bufs.pixels, 0, pixelBytes)

	for _, s := range []struct {
		target *hal.Buffer
		label  string
	}{
		{&bufs.seedsA, "flood_seeds_a"},
		{&bufs.seedsB, "flood_seeds_b"},
	} {
		*s.target, err = a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.label,
			Size:  size,
			Usage: gputypes.BufferUsageStorage,
		})
		if err != nil {
			return fmt.Errorf("flood accelerator: create %s buffer: %w", s.label, err)
		}
	}

	bufs.staging, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "flood_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("flood accelerator: create staging buffer: %w", err)
	}
	return nil
}

// encodePasses records the init pass, one step pass per halving step over
// the ping-ponged seed buffers, the colorize pass and the staging copy into
// a single command buffer. Each pass gets its own uniform because the step
// size differs; implicit storage barriers between passes order the writes.
func (a *Accelerator) encodePasses(bufs *floodBuffers, base floodParams, steps []uint32, n int) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "flood_fill",
	})
	if err != nil {
		return fmt.Errorf("flood accelerator: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("flood_fill"); err != nil {
		return fmt.Errorf("flood accelerator: begin encoding: %w", err)
	}

	wgCount := workgroups(n)

	addPass := func(stage floodStage, params floodParams, ro, rw hal.Buffer) error {
		uniform, uErr := a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: stage.String() + "_params",
			Size:  paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if uErr != nil {
			return fmt.Errorf("create %s uniform: %w", stage, uErr)
		}
		bufs.uniforms = append(bufs.uniforms, uniform)
		a.queue.WriteBuffer(uniform, 0, params.toBytes())

		bg, bgErr := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  stage.String() + "_bg",
			Layout: a.bgLayouts[stage],
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle()}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: ro.NativeHandle()}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: rw.NativeHandle()}},
			},
		})
		if bgErr != nil {
			return fmt.Errorf("create %s bind group: %w", stage, bgErr)
		}
		bufs.bindGroups = append(bufs.bindGroups, bg)

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: stage.String()})
		pass.SetPipeline(a.pipelines[stage])
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(wgCount, 1, 1)
		pass.End()
		return nil
	}

	encode := func() error {
		if err := addPass(stageInit, base, bufs.pixels, bufs.seedsA); err != nil {
			return err
		}
		src, dst := bufs.seedsA, bufs.seedsB
		for _, step := range steps {
			params := base
			params.step = step
			if err := addPass(stageStep, params, src, dst); err != nil {
				return err
			}
			src, dst = dst, src
		}
		return addPass(stageColorize, base, src, bufs.pixels)
	}
	if err := encode(); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("flood accelerator: %w", err)
	}

	encoder.CopyBufferToBuffer(bufs.pixels, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(n * 4)},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("flood accelerator: end encoding: %w", err)
	}
	bufs.cmdBuf = cmdBuf
	return nil
}

// packPixels flattens img into tightly packed RGBA8 rows for upload.
func packPixels(img *image.NRGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return img.Pix
	}
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*w*4:(y+1)*w*4], img.Pix[row:row+w*4])
	}
	return out
}

// unpackPixels copies tightly packed RGBA8 rows back into img.
func unpackPixels(img *image.NRGBA, data []byte) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w*4 && len(img.Pix) == w*h*4 {
		copy(img.Pix, data)
		return
	}
	for y := 0; y < h; y++ {
		row := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(img.Pix[row:row+w*4], data[y*w*4:(y+1)*w*4])
	}
}
