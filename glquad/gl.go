// Package glquad draws a canvas image as one textured quad through a host
// view-projection matrix.
package glquad

// Enum is a GL enumeration value.
type Enum uint32

// The GL enumerations the renderer uses, with their WebGL 1 / OpenGL 2.1 values.
const (
	ARRAY_BUFFER        Enum = 0x8892
	BLEND               Enum = 0x0BE2
	CLAMP_TO_EDGE       Enum = 0x812F
	COMPILE_STATUS      Enum = 0x8B81
	DYNAMIC_DRAW        Enum = 0x88E8
	FLOAT               Enum = 0x1406
	FRAGMENT_SHADER     Enum = 0x8B30
	LINEAR              Enum = 0x2601
	LINK_STATUS         Enum = 0x8B82
	ONE                 Enum = 1
	ONE_MINUS_SRC_ALPHA Enum = 0x0303
	RGBA                Enum = 0x1908
	SRC_ALPHA           Enum = 0x0302
	STATIC_DRAW         Enum = 0x88E4
	TEXTURE0            Enum = 0x84C0
	TEXTURE_2D          Enum = 0x0DE1
	TEXTURE_MAG_FILTER  Enum = 0x2800
	TEXTURE_MIN_FILTER  Enum = 0x2801
	TEXTURE_WRAP_S      Enum = 0x2802
	TEXTURE_WRAP_T      Enum = 0x2803
	TRIANGLES           Enum = 0x0004
	UNSIGNED_BYTE       Enum = 0x1401
	VERTEX_SHADER       Enum = 0x8B31
)

// Object handles wrap whatever the backend uses (uint32 names for desktop
// GL, js.Value for WebGL). The zero handle is invalid.
type (
	Shader  struct{ Value any }
	Program struct{ Value any }
	Buffer  struct{ Value any }
	Texture struct{ Value any }
	Uniform struct{ Value any }
)

// Attrib is a vertex attribute location; negative means not found.
type Attrib int

func (s Shader) Valid() bool  { return s.Value != nil }
func (p Program) Valid() bool { return p.Value != nil }
func (b Buffer) Valid() bool  { return b.Value != nil }
func (t Texture) Valid() bool { return t.Value != nil }
func (u Uniform) Valid() bool { return u.Value != nil }
func (a Attrib) Valid() bool  { return a >= 0 }

// GL is the subset of WebGL 1 the renderer calls. Host engines hand one to
// custom layers; gogl and webgl provide desktop and browser backends.
type GL interface {
	CreateShader(ty Enum) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)
	GetAttribLocation(p Program, name string) Attrib
	GetUniformLocation(p Program, name string) Uniform

	CreateBuffer() Buffer
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []float32, usage Enum)
	DeleteBuffer(b Buffer)
	EnableVertexAttribArray(a Attrib)
	VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int)

	CreateTexture() Texture
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexParameteri(target, pname Enum, param int)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, ty Enum, pix []byte)
	DeleteTexture(t Texture)

	UniformMatrix4fv(u Uniform, m [16]float32)
	Uniform1i(u Uniform, v int)

	Enable(cap Enum)
	BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA Enum)
	DrawArrays(mode Enum, first, count int)
}
