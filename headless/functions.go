// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"celestia.space/render/internal/gl"
)

// functions implements gl.Functions.
type functions Platform

var _ gl.Functions = (*functions)(nil)

type glState struct {
	textures      map[uint]*texture
	framebuffers  map[uint]*framebuffer
	renderbuffers map[uint]*renderbuffer
	programs      map[uint]*program
	shaders       map[uint]*shader
	buffers       map[uint][]byte

	activeUnit   int
	units        [8]uint
	framebuffer  uint
	renderbuffer uint
	arrayBuffer  uint
	program      uint

	clearColor color.RGBA
	viewport   [4]int
	caps       map[gl.Enum]bool
	attribs    map[gl.Attrib]bool
	err        gl.Enum
}

type texture struct {
	img                  *image.RGBA
	minFilter, magFilter int
}

type framebuffer struct {
	color uint
	depth uint
}

type renderbuffer struct {
	size image.Point
}

type shader struct {
	typ      gl.Enum
	src      string
	compiled bool
}

type program struct {
	shaders []uint
	linked  bool
	src     string
}

func newGLState() glState {
	return glState{
		textures:      make(map[uint]*texture),
		framebuffers:  make(map[uint]*framebuffer),
		renderbuffers: make(map[uint]*renderbuffer),
		programs:      make(map[uint]*program),
		shaders:       make(map[uint]*shader),
		buffers:       make(map[uint][]byte),
		caps:          make(map[gl.Enum]bool),
		attribs:       make(map[gl.Attrib]bool),
	}
}

// reset drops every object and binding and returns the number of
// objects dropped.
func (s *glState) reset() int {
	n := len(s.textures) + len(s.framebuffers) + len(s.renderbuffers) +
		len(s.programs) + len(s.shaders) + len(s.buffers)
	*s = newGLState()
	return n
}

func (s *glState) setError(e gl.Enum) {
	if s.err == gl.NO_ERROR {
		s.err = e
	}
}

// lock locks the platform and reports whether a context is current.
// Calls without a current context are counted and ignored.
func (f *functions) lock() (*Platform, bool) {
	p := (*Platform)(f)
	p.mu.Lock()
	if p.currentCtx == 0 {
		p.stats.StrayCalls++
		return p, false
	}
	return p, true
}

func (f *functions) ActiveTexture(t gl.Enum) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	u := int(t) - gl.TEXTURE0
	if u < 0 || u >= len(p.gl.units) {
		p.gl.setError(gl.INVALID_VALUE)
		return
	}
	p.gl.activeUnit = u
}

func (f *functions) AttachShader(prog gl.Program, s gl.Shader) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	pr, ok := p.gl.programs[prog.V]
	if !ok || p.gl.shaders[s.V] == nil {
		p.gl.setError(gl.INVALID_VALUE)
		return
	}
	pr.shaders = append(pr.shaders, s.V)
}

func (f *functions) BindAttribLocation(prog gl.Program, a gl.Attrib, name string) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok && p.gl.programs[prog.V] == nil {
		p.gl.setError(gl.INVALID_VALUE)
	}
}

func (f *functions) BindBuffer(target gl.Enum, b gl.Buffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if _, exists := p.gl.buffers[b.V]; b.Valid() && !exists {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	p.gl.arrayBuffer = b.V
}

func (f *functions) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if fb.Valid() && p.gl.framebuffers[fb.V] == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	p.gl.framebuffer = fb.V
}

func (f *functions) BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if rb.Valid() && p.gl.renderbuffers[rb.V] == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	p.gl.renderbuffer = rb.V
}

func (f *functions) BindTexture(target gl.Enum, t gl.Texture) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if t.Valid() && p.gl.textures[t.V] == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	p.gl.units[p.gl.activeUnit] = t.V
}

func (f *functions) BufferData(target gl.Enum, src []byte, usage gl.Enum) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if p.gl.arrayBuffer == 0 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	p.gl.buffers[p.gl.arrayBuffer] = append([]byte(nil), src...)
}

func (f *functions) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return 0
	}
	if p.gl.framebuffer == 0 {
		return gl.FRAMEBUFFER_COMPLETE
	}
	fb := p.gl.framebuffers[p.gl.framebuffer]
	tex := p.gl.textures[fb.color]
	if p.faults.IncompleteFramebuffer || tex == nil || tex.img == nil || tex.img.Rect.Empty() {
		return gl.FRAMEBUFFER_INCOMPLETE
	}
	if rb := p.gl.renderbuffers[fb.depth]; rb != nil && rb.size != tex.img.Rect.Size() {
		return gl.FRAMEBUFFER_INCOMPLETE
	}
	return gl.FRAMEBUFFER_COMPLETE
}

func (f *functions) Clear(mask gl.Enum) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok || mask&gl.COLOR_BUFFER_BIT == 0 {
		return
	}
	if dst := p.drawTarget(); dst != nil {
		draw.Draw(dst, dst.Rect, image.NewUniform(p.gl.clearColor), image.Point{}, draw.Src)
	}
}

func (f *functions) ClearColor(red, green, blue, alpha float32) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	a := unit(alpha)
	// Colors are stored premultiplied.
	p.gl.clearColor = color.RGBA{
		R: uint8(unit(red)*a*255 + .5),
		G: uint8(unit(green)*a*255 + .5),
		B: uint8(unit(blue)*a*255 + .5),
		A: uint8(a*255 + .5),
	}
}

func unit(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (f *functions) CompileShader(s gl.Shader) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	sh := p.gl.shaders[s.V]
	if sh == nil {
		p.gl.setError(gl.INVALID_VALUE)
		return
	}
	sh.compiled = strings.Contains(sh.src, "void main()")
}

func (f *functions) CreateBuffer() gl.Buffer {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Buffer{}
	}
	id := p.newID()
	p.gl.buffers[id] = nil
	return gl.Buffer{V: id}
}

func (f *functions) CreateFramebuffer() gl.Framebuffer {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Framebuffer{}
	}
	id := p.newID()
	p.gl.framebuffers[id] = new(framebuffer)
	p.stats.FramebuffersCreated++
	return gl.Framebuffer{V: id}
}

func (f *functions) CreateProgram() gl.Program {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Program{}
	}
	id := p.newID()
	p.gl.programs[id] = new(program)
	return gl.Program{V: id}
}

func (f *functions) CreateRenderbuffer() gl.Renderbuffer {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Renderbuffer{}
	}
	id := p.newID()
	p.gl.renderbuffers[id] = new(renderbuffer)
	return gl.Renderbuffer{V: id}
}

func (f *functions) CreateShader(ty gl.Enum) gl.Shader {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Shader{}
	}
	id := p.newID()
	p.gl.shaders[id] = &shader{typ: ty}
	return gl.Shader{V: id}
}

func (f *functions) CreateTexture() gl.Texture {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Texture{}
	}
	id := p.newID()
	p.gl.textures[id] = &texture{minFilter: gl.NEAREST, magFilter: gl.LINEAR}
	return gl.Texture{V: id}
}

func (f *functions) DeleteBuffer(v gl.Buffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	delete(p.gl.buffers, v.V)
	if p.gl.arrayBuffer == v.V {
		p.gl.arrayBuffer = 0
	}
}

func (f *functions) DeleteFramebuffer(v gl.Framebuffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if _, exists := p.gl.framebuffers[v.V]; exists {
		delete(p.gl.framebuffers, v.V)
		p.stats.FramebuffersDeleted++
	}
	if p.gl.framebuffer == v.V {
		p.gl.framebuffer = 0
	}
}

func (f *functions) DeleteProgram(v gl.Program) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	delete(p.gl.programs, v.V)
	if p.gl.program == v.V {
		p.gl.program = 0
	}
}

func (f *functions) DeleteRenderbuffer(v gl.Renderbuffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	delete(p.gl.renderbuffers, v.V)
	if p.gl.renderbuffer == v.V {
		p.gl.renderbuffer = 0
	}
}

func (f *functions) DeleteShader(v gl.Shader) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		delete(p.gl.shaders, v.V)
	}
}

func (f *functions) DeleteTexture(v gl.Texture) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	delete(p.gl.textures, v.V)
	for i, t := range p.gl.units {
		if t == v.V {
			p.gl.units[i] = 0
		}
	}
}

func (f *functions) Disable(cap gl.Enum) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		p.gl.caps[cap] = false
	}
}

func (f *functions) DisableVertexAttribArray(a gl.Attrib) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		p.gl.attribs[a] = false
	}
}

// DrawArrays rasterizes a full viewport quad textured with the
// texture bound to unit 0. Other geometry isn't supported.
func (f *functions) DrawArrays(mode gl.Enum, first, count int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	prog := p.gl.programs[p.gl.program]
	if prog == nil || !prog.linked || mode != gl.TRIANGLE_STRIP || count != 4 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	if !p.gl.attribs[0] || !p.gl.attribs[1] || p.gl.arrayBuffer == 0 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	tex := p.gl.textures[p.gl.units[0]]
	if tex == nil || tex.img == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	dst := p.drawTarget()
	if dst == nil {
		return
	}
	if p.gl.caps[gl.DEPTH_TEST] {
		p.stats.DepthTestedDraws++
	}
	p.stats.Draws++
	var scaler draw.Scaler = draw.ApproxBiLinear
	if tex.magFilter == gl.NEAREST {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(dst, p.viewportRect(dst), tex.img, tex.img.Rect, draw.Src, nil)
}

func (f *functions) Enable(cap gl.Enum) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		p.gl.caps[cap] = true
	}
}

func (f *functions) EnableVertexAttribArray(a gl.Attrib) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		p.gl.attribs[a] = true
	}
}

func (f *functions) Finish() {
	p, _ := f.lock()
	p.mu.Unlock()
}

func (f *functions) FramebufferRenderbuffer(target, attachment, renderbuffertarget gl.Enum, rb gl.Renderbuffer) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	fb := p.gl.framebuffers[p.gl.framebuffer]
	if fb == nil || attachment != gl.DEPTH_ATTACHMENT {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	fb.depth = rb.V
}

func (f *functions) FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	fb := p.gl.framebuffers[p.gl.framebuffer]
	if fb == nil || attachment != gl.COLOR_ATTACHMENT0 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	fb.color = t.V
}

func (f *functions) GetError() gl.Enum {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.NO_ERROR
	}
	err := p.gl.err
	p.gl.err = gl.NO_ERROR
	return err
}

func (f *functions) GetInteger(pname gl.Enum) int {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return 0
	}
	switch pname {
	case gl.FRAMEBUFFER_BINDING:
		return int(p.gl.framebuffer)
	case gl.RENDERBUFFER_BINDING:
		return int(p.gl.renderbuffer)
	case gl.TEXTURE_BINDING_2D:
		return int(p.gl.units[p.gl.activeUnit])
	}
	p.gl.setError(gl.INVALID_VALUE)
	return 0
}

func (f *functions) GetProgrami(prog gl.Program, pname gl.Enum) int {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return 0
	}
	pr := p.gl.programs[prog.V]
	if pr == nil {
		p.gl.setError(gl.INVALID_VALUE)
		return 0
	}
	if pname == gl.LINK_STATUS && pr.linked {
		return gl.TRUE
	}
	return 0
}

func (f *functions) GetProgramInfoLog(prog gl.Program) string {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return ""
	}
	if pr := p.gl.programs[prog.V]; pr != nil && !pr.linked {
		return "program needs a compiled vertex and fragment shader"
	}
	return ""
}

func (f *functions) GetShaderi(s gl.Shader, pname gl.Enum) int {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return 0
	}
	sh := p.gl.shaders[s.V]
	if sh == nil {
		p.gl.setError(gl.INVALID_VALUE)
		return 0
	}
	if pname == gl.COMPILE_STATUS && sh.compiled {
		return gl.TRUE
	}
	return 0
}

func (f *functions) GetShaderInfoLog(s gl.Shader) string {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return ""
	}
	if sh := p.gl.shaders[s.V]; sh != nil && !sh.compiled {
		return "missing main function"
	}
	return ""
}

func (f *functions) GetString(pname gl.Enum) string {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return ""
	}
	switch pname {
	case gl.VERSION:
		return "OpenGL ES 3.0 headless"
	case gl.RENDERER:
		return "headless"
	}
	return ""
}

func (f *functions) GetUniformLocation(prog gl.Program, name string) gl.Uniform {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return gl.Uniform{V: -1}
	}
	pr := p.gl.programs[prog.V]
	if pr == nil || !pr.linked {
		p.gl.setError(gl.INVALID_OPERATION)
		return gl.Uniform{V: -1}
	}
	for i, line := range strings.Split(pr.src, "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if len(fields) >= 3 && fields[0] == "uniform" && fields[len(fields)-1] == name {
			return gl.Uniform{V: i}
		}
	}
	return gl.Uniform{V: -1}
}

func (f *functions) IsEnabled(cap gl.Enum) bool {
	p, ok := f.lock()
	defer p.mu.Unlock()
	return ok && p.gl.caps[cap]
}

func (f *functions) LinkProgram(prog gl.Program) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	pr := p.gl.programs[prog.V]
	if pr == nil {
		p.gl.setError(gl.INVALID_VALUE)
		return
	}
	var vert, frag bool
	var src strings.Builder
	for _, id := range pr.shaders {
		sh := p.gl.shaders[id]
		if sh == nil || !sh.compiled {
			continue
		}
		switch sh.typ {
		case gl.VERTEX_SHADER:
			vert = true
		case gl.FRAGMENT_SHADER:
			frag = true
		}
		src.WriteString(sh.src)
		src.WriteString("\n")
	}
	pr.linked = vert && frag
	pr.src = src.String()
}

// ReadPixels reads RGBA pixels from the bound framebuffer, bottom row
// first.
func (f *functions) ReadPixels(x, y, width, height int, format, ty gl.Enum, data []byte) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	src := p.drawTarget()
	if src == nil || format != gl.RGBA || ty != gl.UNSIGNED_BYTE || len(data) < width*height*4 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	h := src.Rect.Dy()
	for row := 0; row < height; row++ {
		sy := h - 1 - (y + row)
		if sy < 0 || sy >= h {
			continue
		}
		line := data[row*width*4 : (row+1)*width*4]
		for col := 0; col < width; col++ {
			c := src.RGBAAt(x+col, sy)
			line[col*4+0] = c.R
			line[col*4+1] = c.G
			line[col*4+2] = c.B
			line[col*4+3] = c.A
		}
	}
}

func (f *functions) RenderbufferStorage(target, internalformat gl.Enum, width, height int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	rb := p.gl.renderbuffers[p.gl.renderbuffer]
	if rb == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	rb.size = image.Pt(width, height)
}

func (f *functions) ShaderSource(s gl.Shader, src string) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if sh := p.gl.shaders[s.V]; sh != nil {
		sh.src = src
	}
}

// TexImage2D allocates the storage of the bound texture. Rows of data
// are bottom row first.
func (f *functions) TexImage2D(target gl.Enum, level int, internalFormat int, width, height int, format, ty gl.Enum, data []byte) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	tex := p.gl.textures[p.gl.units[p.gl.activeUnit]]
	if tex == nil || width < 0 || height < 0 {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if len(data) >= width*height*4 {
		for row := 0; row < height; row++ {
			copy(img.Pix[(height-1-row)*img.Stride:], data[row*width*4:(row+1)*width*4])
		}
	}
	tex.img = img
}

func (f *functions) TexParameteri(target, pname gl.Enum, param int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	tex := p.gl.textures[p.gl.units[p.gl.activeUnit]]
	if tex == nil {
		p.gl.setError(gl.INVALID_OPERATION)
		return
	}
	switch pname {
	case gl.TEXTURE_MIN_FILTER:
		tex.minFilter = param
	case gl.TEXTURE_MAG_FILTER:
		tex.magFilter = param
	}
}

func (f *functions) Uniform1i(dst gl.Uniform, v int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok && p.gl.program == 0 {
		p.gl.setError(gl.INVALID_OPERATION)
	}
}

func (f *functions) UseProgram(prog gl.Program) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if !ok {
		return
	}
	if prog.Valid() {
		if pr := p.gl.programs[prog.V]; pr == nil || !pr.linked {
			p.gl.setError(gl.INVALID_OPERATION)
			return
		}
	}
	p.gl.program = prog.V
}

func (f *functions) VertexAttribPointer(dst gl.Attrib, size int, ty gl.Enum, normalized bool, stride, offset int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok && p.gl.arrayBuffer == 0 {
		p.gl.setError(gl.INVALID_OPERATION)
	}
}

func (f *functions) Viewport(x, y, width, height int) {
	p, ok := f.lock()
	defer p.mu.Unlock()
	if ok {
		p.gl.viewport = [4]int{x, y, width, height}
	}
}

// drawTarget returns the color buffer of the bound framebuffer.
func (p *Platform) drawTarget() *image.RGBA {
	if p.gl.framebuffer == 0 {
		return p.defaultFramebuffer()
	}
	fb := p.gl.framebuffers[p.gl.framebuffer]
	if tex := p.gl.textures[fb.color]; tex != nil {
		return tex.img
	}
	return nil
}

// viewportRect converts the viewport to image coordinates of dst,
// whose origin is the top left corner.
func (p *Platform) viewportRect(dst *image.RGBA) image.Rectangle {
	v := p.gl.viewport
	h := dst.Rect.Dy()
	return image.Rect(v[0], h-(v[1]+v[3]), v[0]+v[2], h-v[1])
}
