// Package glfake provides a recording glquad.GL for tests.
package glfake

import (
	"strings"

	"github.com/olablt/tilebridge/glquad"
)

// Call is one recorded GL call.
type Call struct {
	Name string
	Args []any
}

// Draw captures the state a DrawArrays call saw.
type Draw struct {
	Mode      glquad.Enum
	First     int
	Count     int
	Positions []float32
	UVs       []float32
	Matrix    [16]float32
	Blend     [4]glquad.Enum
	Texture   TexImage
}

// TexImage describes the last texture upload.
type TexImage struct {
	Width, Height int
	Pix           []byte
}

// Recorder implements glquad.GL without a GPU. Objects are small integers;
// buffers keep their data so draws can be inspected.
type Recorder struct {
	// FailCompile makes shaders of this type fail to compile.
	FailCompile glquad.Enum
	FailLink    bool
	// Missing lists attribute and uniform names reported as absent.
	Missing []string

	Calls []Call
	Draws []Draw

	next     int
	live     map[int]string
	buffers  map[int][]float32
	bound    map[glquad.Enum]int
	attribs  map[glquad.Attrib]int
	texture  int
	images   map[int]TexImage
	matrix   [16]float32
	blend    [4]glquad.Enum
	enabled  map[glquad.Enum]bool
	compiled map[int]bool
	linked   map[int]bool
}

// New returns a Recorder on which everything succeeds. A zero Recorder with
// failure fields set is also ready to use.
func New() *Recorder {
	return &Recorder{}
}

// Count returns how many times the named call was made.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Live returns the number of objects of kind ("shader", "program", "buffer",
// "texture") not yet deleted.
func (r *Recorder) Live(kind string) int {
	n := 0
	for _, k := range r.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveObjects returns the number of undeleted objects of any kind.
func (r *Recorder) LiveObjects() int { return len(r.live) }

// Enabled reports whether cap was enabled.
func (r *Recorder) Enabled(cap glquad.Enum) bool { return r.enabled[cap] }

func (r *Recorder) record(name string, args ...any) {
	if r.live == nil {
		r.live = make(map[int]string)
		r.buffers = make(map[int][]float32)
		r.bound = make(map[glquad.Enum]int)
		r.attribs = make(map[glquad.Attrib]int)
		r.images = make(map[int]TexImage)
		r.enabled = make(map[glquad.Enum]bool)
		r.compiled = make(map[int]bool)
		r.linked = make(map[int]bool)
	}
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) create(kind string) int {
	r.next++
	r.live[r.next] = kind
	return r.next
}

func (r *Recorder) remove(v any) {
	if id, ok := v.(int); ok {
		delete(r.live, id)
		delete(r.buffers, id)
		delete(r.images, id)
	}
}

func id(v any) int {
	n, _ := v.(int)
	return n
}

func (r *Recorder) missing(name string) bool {
	for _, m := range r.Missing {
		if m == name {
			return true
		}
	}
	return false
}

func (r *Recorder) CreateShader(ty glquad.Enum) glquad.Shader {
	r.record("CreateShader", ty)
	s := r.create("shader")
	if ty != r.FailCompile {
		r.compiled[s] = true
	}
	return glquad.Shader{Value: s}
}

func (r *Recorder) ShaderSource(s glquad.Shader, src string) {
	r.record("ShaderSource", s.Value, src)
}

func (r *Recorder) CompileShader(s glquad.Shader) { r.record("CompileShader", s.Value) }

func (r *Recorder) GetShaderi(s glquad.Shader, pname glquad.Enum) int {
	r.record("GetShaderi", s.Value, pname)
	if pname == glquad.COMPILE_STATUS && r.compiled[id(s.Value)] {
		return 1
	}
	return 0
}

func (r *Recorder) GetShaderInfoLog(s glquad.Shader) string {
	r.record("GetShaderInfoLog", s.Value)
	if r.compiled[id(s.Value)] {
		return ""
	}
	return "ERROR: 0:1: syntax error"
}

func (r *Recorder) DeleteShader(s glquad.Shader) {
	r.record("DeleteShader", s.Value)
	r.remove(s.Value)
}

func (r *Recorder) CreateProgram() glquad.Program {
	r.record("CreateProgram")
	return glquad.Program{Value: r.create("program")}
}

func (r *Recorder) AttachShader(p glquad.Program, s glquad.Shader) {
	r.record("AttachShader", p.Value, s.Value)
}

func (r *Recorder) LinkProgram(p glquad.Program) {
	r.record("LinkProgram", p.Value)
	if !r.FailLink {
		r.linked[id(p.Value)] = true
	}
}

func (r *Recorder) GetProgrami(p glquad.Program, pname glquad.Enum) int {
	r.record("GetProgrami", p.Value, pname)
	if pname == glquad.LINK_STATUS && r.linked[id(p.Value)] {
		return 1
	}
	return 0
}

func (r *Recorder) GetProgramInfoLog(p glquad.Program) string {
	r.record("GetProgramInfoLog", p.Value)
	if r.linked[id(p.Value)] {
		return ""
	}
	return "error: varying v_uv not written"
}

func (r *Recorder) UseProgram(p glquad.Program) { r.record("UseProgram", p.Value) }

func (r *Recorder) DeleteProgram(p glquad.Program) {
	r.record("DeleteProgram", p.Value)
	r.remove(p.Value)
}

func (r *Recorder) GetAttribLocation(p glquad.Program, name string) glquad.Attrib {
	r.record("GetAttribLocation", p.Value, name)
	if r.missing(name) {
		return -1
	}
	switch name {
	case glquad.PositionAttrib:
		return 0
	case glquad.UVAttrib:
		return 1
	}
	return -1
}

func (r *Recorder) GetUniformLocation(p glquad.Program, name string) glquad.Uniform {
	r.record("GetUniformLocation", p.Value, name)
	if r.missing(name) || !strings.HasPrefix(name, "u_") {
		return glquad.Uniform{}
	}
	return glquad.Uniform{Value: name}
}

func (r *Recorder) CreateBuffer() glquad.Buffer {
	r.record("CreateBuffer")
	return glquad.Buffer{Value: r.create("buffer")}
}

func (r *Recorder) BindBuffer(target glquad.Enum, b glquad.Buffer) {
	r.record("BindBuffer", target, b.Value)
	r.bound[target] = id(b.Value)
}

func (r *Recorder) BufferData(target glquad.Enum, data []float32, usage glquad.Enum) {
	r.record("BufferData", target, len(data), usage)
	r.buffers[r.bound[target]] = append([]float32(nil), data...)
}

func (r *Recorder) DeleteBuffer(b glquad.Buffer) {
	r.record("DeleteBuffer", b.Value)
	r.remove(b.Value)
}

func (r *Recorder) EnableVertexAttribArray(a glquad.Attrib) {
	r.record("EnableVertexAttribArray", a)
}

func (r *Recorder) VertexAttribPointer(a glquad.Attrib, size int, ty glquad.Enum, normalized bool, stride, offset int) {
	r.record("VertexAttribPointer", a, size, ty, normalized, stride, offset)
	r.attribs[a] = r.bound[glquad.ARRAY_BUFFER]
}

func (r *Recorder) CreateTexture() glquad.Texture {
	r.record("CreateTexture")
	return glquad.Texture{Value: r.create("texture")}
}

func (r *Recorder) ActiveTexture(unit glquad.Enum) { r.record("ActiveTexture", unit) }

func (r *Recorder) BindTexture(target glquad.Enum, t glquad.Texture) {
	r.record("BindTexture", target, t.Value)
	r.texture = id(t.Value)
}

func (r *Recorder) TexParameteri(target, pname glquad.Enum, param int) {
	r.record("TexParameteri", target, pname, param)
}

func (r *Recorder) TexImage2D(target glquad.Enum, level int, internalFormat glquad.Enum, width, height int, format, ty glquad.Enum, pix []byte) {
	r.record("TexImage2D", target, level, internalFormat, width, height, format, ty)
	r.images[r.texture] = TexImage{Width: width, Height: height, Pix: append([]byte(nil), pix...)}
}

func (r *Recorder) DeleteTexture(t glquad.Texture) {
	r.record("DeleteTexture", t.Value)
	r.remove(t.Value)
}

func (r *Recorder) UniformMatrix4fv(u glquad.Uniform, m [16]float32) {
	r.record("UniformMatrix4fv", u.Value, m)
	if u.Value == glquad.MatrixUniform {
		r.matrix = m
	}
}

func (r *Recorder) Uniform1i(u glquad.Uniform, v int) { r.record("Uniform1i", u.Value, v) }

func (r *Recorder) Enable(cap glquad.Enum) {
	r.record("Enable", cap)
	r.enabled[cap] = true
}

func (r *Recorder) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA glquad.Enum) {
	r.record("BlendFuncSeparate", srcRGB, dstRGB, srcA, dstA)
	r.blend = [4]glquad.Enum{srcRGB, dstRGB, srcA, dstA}
}

func (r *Recorder) DrawArrays(mode glquad.Enum, first, count int) {
	r.record("DrawArrays", mode, first, count)
	r.Draws = append(r.Draws, Draw{
		Mode:      mode,
		First:     first,
		Count:     count,
		Positions: r.buffers[r.attribs[0]],
		UVs:       r.buffers[r.attribs[1]],
		Matrix:    r.matrix,
		Blend:     r.blend,
		Texture:   r.images[r.texture],
	})
}

var _ glquad.GL = (*Recorder)(nil)
