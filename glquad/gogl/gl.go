//go:build !js

// Package gogl implements glquad.GL on desktop OpenGL 2.1 through go-gl.
// A context must be current on the calling goroutine.
package gogl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/olablt/tilebridge/glquad"
)

type Context struct{}

// New loads the GL function pointers for the current context.
func New() (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gogl: init: %w", err)
	}
	return &Context{}, nil
}

// Version returns the GL version string of the current context.
func (c *Context) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// Viewport and Clear are used by hosts to prepare a frame; the renderer
// itself never calls them.
func (c *Context) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (c *Context) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func name(v any) uint32 {
	n, _ := v.(uint32)
	return n
}

func handle(n uint32) any {
	if n == 0 {
		return nil
	}
	return n
}

func (c *Context) CreateShader(ty glquad.Enum) glquad.Shader {
	return glquad.Shader{Value: handle(gl.CreateShader(uint32(ty)))}
}

func (c *Context) ShaderSource(s glquad.Shader, src string) {
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(name(s.Value), 1, csources, nil)
	free()
}

func (c *Context) CompileShader(s glquad.Shader) { gl.CompileShader(name(s.Value)) }

func (c *Context) GetShaderi(s glquad.Shader, pname glquad.Enum) int {
	var v int32
	gl.GetShaderiv(name(s.Value), uint32(pname), &v)
	return int(v)
}

func (c *Context) GetShaderInfoLog(s glquad.Shader) string {
	var n int32
	gl.GetShaderiv(name(s.Value), gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(n+1))
	gl.GetShaderInfoLog(name(s.Value), n, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (c *Context) DeleteShader(s glquad.Shader) { gl.DeleteShader(name(s.Value)) }

func (c *Context) CreateProgram() glquad.Program {
	return glquad.Program{Value: handle(gl.CreateProgram())}
}

func (c *Context) AttachShader(p glquad.Program, s glquad.Shader) {
	gl.AttachShader(name(p.Value), name(s.Value))
}

func (c *Context) LinkProgram(p glquad.Program) { gl.LinkProgram(name(p.Value)) }

func (c *Context) GetProgrami(p glquad.Program, pname glquad.Enum) int {
	var v int32
	gl.GetProgramiv(name(p.Value), uint32(pname), &v)
	return int(v)
}

func (c *Context) GetProgramInfoLog(p glquad.Program) string {
	var n int32
	gl.GetProgramiv(name(p.Value), gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(n+1))
	gl.GetProgramInfoLog(name(p.Value), n, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (c *Context) UseProgram(p glquad.Program) { gl.UseProgram(name(p.Value)) }

func (c *Context) DeleteProgram(p glquad.Program) { gl.DeleteProgram(name(p.Value)) }

func (c *Context) GetAttribLocation(p glquad.Program, attr string) glquad.Attrib {
	return glquad.Attrib(gl.GetAttribLocation(name(p.Value), gl.Str(attr+"\x00")))
}

func (c *Context) GetUniformLocation(p glquad.Program, uniform string) glquad.Uniform {
	loc := gl.GetUniformLocation(name(p.Value), gl.Str(uniform+"\x00"))
	if loc < 0 {
		return glquad.Uniform{}
	}
	return glquad.Uniform{Value: loc}
}

func location(u glquad.Uniform) int32 {
	loc, ok := u.Value.(int32)
	if !ok {
		return -1
	}
	return loc
}

func (c *Context) CreateBuffer() glquad.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return glquad.Buffer{Value: handle(b)}
}

func (c *Context) BindBuffer(target glquad.Enum, b glquad.Buffer) {
	gl.BindBuffer(uint32(target), name(b.Value))
}

func (c *Context) BufferData(target glquad.Enum, data []float32, usage glquad.Enum) {
	if len(data) == 0 {
		gl.BufferData(uint32(target), 0, nil, uint32(usage))
		return
	}
	gl.BufferData(uint32(target), len(data)*4, gl.Ptr(data), uint32(usage))
}

func (c *Context) DeleteBuffer(b glquad.Buffer) {
	n := name(b.Value)
	gl.DeleteBuffers(1, &n)
}

func (c *Context) EnableVertexAttribArray(a glquad.Attrib) {
	gl.EnableVertexAttribArray(uint32(a))
}

func (c *Context) VertexAttribPointer(a glquad.Attrib, size int, ty glquad.Enum, normalized bool, stride, offset int) {
	gl.VertexAttribPointerWithOffset(uint32(a), int32(size), uint32(ty), normalized, int32(stride), uintptr(offset))
}

func (c *Context) CreateTexture() glquad.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return glquad.Texture{Value: handle(t)}
}

func (c *Context) ActiveTexture(unit glquad.Enum) { gl.ActiveTexture(uint32(unit)) }

func (c *Context) BindTexture(target glquad.Enum, t glquad.Texture) {
	gl.BindTexture(uint32(target), name(t.Value))
}

func (c *Context) TexParameteri(target, pname glquad.Enum, param int) {
	gl.TexParameteri(uint32(target), uint32(pname), int32(param))
}

func (c *Context) TexImage2D(target glquad.Enum, level int, internalFormat glquad.Enum, width, height int, format, ty glquad.Enum, pix []byte) {
	var ptr = gl.Ptr(nil)
	if len(pix) > 0 {
		ptr = gl.Ptr(pix)
	}
	// canvas rows are tightly packed but not always 4-byte aligned
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(uint32(target), int32(level), int32(internalFormat), int32(width), int32(height), 0, uint32(format), uint32(ty), ptr)
}

func (c *Context) DeleteTexture(t glquad.Texture) {
	n := name(t.Value)
	gl.DeleteTextures(1, &n)
}

func (c *Context) UniformMatrix4fv(u glquad.Uniform, m [16]float32) {
	gl.UniformMatrix4fv(location(u), 1, false, &m[0])
}

func (c *Context) Uniform1i(u glquad.Uniform, v int) { gl.Uniform1i(location(u), int32(v)) }

func (c *Context) Enable(cap glquad.Enum) { gl.Enable(uint32(cap)) }

func (c *Context) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA glquad.Enum) {
	gl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcA), uint32(dstA))
}

func (c *Context) DrawArrays(mode glquad.Enum, first, count int) {
	gl.DrawArrays(uint32(mode), int32(first), int32(count))
}

var _ glquad.GL = (*Context)(nil)
