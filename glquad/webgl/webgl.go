//go:build js && wasm

// Package webgl implements glquad.GL on a browser WebGL rendering context,
// such as the one a Mapbox GL custom layer receives.
package webgl

import (
	"encoding/binary"
	"math"
	"syscall/js"

	"github.com/olablt/tilebridge/glquad"
)

type Context struct {
	gl       js.Value
	uint8s   js.Value
	float32s js.Value
	scratch  []byte
}

func New(gl js.Value) *Context {
	return &Context{
		gl:       gl,
		uint8s:   js.Global().Get("Uint8Array"),
		float32s: js.Global().Get("Float32Array"),
	}
}

// Value returns the wrapped context.
func (c *Context) Value() js.Value { return c.gl }

func value(v any) js.Value {
	if jv, ok := v.(js.Value); ok {
		return jv
	}
	return js.Null()
}

func handle(v js.Value) any {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return v
}

func (c *Context) bytes(b []byte) js.Value {
	arr := c.uint8s.New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func (c *Context) floats(data []float32) js.Value {
	n := len(data) * 4
	if cap(c.scratch) < n {
		c.scratch = make([]byte, n)
	}
	buf := c.scratch[:n]
	for i, f := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return c.float32s.New(c.bytes(buf).Get("buffer"))
}

func (c *Context) CreateShader(ty glquad.Enum) glquad.Shader {
	return glquad.Shader{Value: handle(c.gl.Call("createShader", int(ty)))}
}

func (c *Context) ShaderSource(s glquad.Shader, src string) {
	c.gl.Call("shaderSource", value(s.Value), src)
}

func (c *Context) CompileShader(s glquad.Shader) { c.gl.Call("compileShader", value(s.Value)) }

func toInt(v js.Value) int {
	switch v.Type() {
	case js.TypeBoolean:
		if v.Bool() {
			return 1
		}
		return 0
	case js.TypeNumber:
		return v.Int()
	}
	return 0
}

func (c *Context) GetShaderi(s glquad.Shader, pname glquad.Enum) int {
	return toInt(c.gl.Call("getShaderParameter", value(s.Value), int(pname)))
}

func (c *Context) GetShaderInfoLog(s glquad.Shader) string {
	return c.gl.Call("getShaderInfoLog", value(s.Value)).String()
}

func (c *Context) DeleteShader(s glquad.Shader) { c.gl.Call("deleteShader", value(s.Value)) }

func (c *Context) CreateProgram() glquad.Program {
	return glquad.Program{Value: handle(c.gl.Call("createProgram"))}
}

func (c *Context) AttachShader(p glquad.Program, s glquad.Shader) {
	c.gl.Call("attachShader", value(p.Value), value(s.Value))
}

func (c *Context) LinkProgram(p glquad.Program) { c.gl.Call("linkProgram", value(p.Value)) }

func (c *Context) GetProgrami(p glquad.Program, pname glquad.Enum) int {
	return toInt(c.gl.Call("getProgramParameter", value(p.Value), int(pname)))
}

func (c *Context) GetProgramInfoLog(p glquad.Program) string {
	return c.gl.Call("getProgramInfoLog", value(p.Value)).String()
}

func (c *Context) UseProgram(p glquad.Program) { c.gl.Call("useProgram", value(p.Value)) }

func (c *Context) DeleteProgram(p glquad.Program) { c.gl.Call("deleteProgram", value(p.Value)) }

func (c *Context) GetAttribLocation(p glquad.Program, name string) glquad.Attrib {
	return glquad.Attrib(c.gl.Call("getAttribLocation", value(p.Value), name).Int())
}

func (c *Context) GetUniformLocation(p glquad.Program, name string) glquad.Uniform {
	return glquad.Uniform{Value: handle(c.gl.Call("getUniformLocation", value(p.Value), name))}
}

func (c *Context) CreateBuffer() glquad.Buffer {
	return glquad.Buffer{Value: handle(c.gl.Call("createBuffer"))}
}

func (c *Context) BindBuffer(target glquad.Enum, b glquad.Buffer) {
	c.gl.Call("bindBuffer", int(target), value(b.Value))
}

func (c *Context) BufferData(target glquad.Enum, data []float32, usage glquad.Enum) {
	c.gl.Call("bufferData", int(target), c.floats(data), int(usage))
}

func (c *Context) DeleteBuffer(b glquad.Buffer) { c.gl.Call("deleteBuffer", value(b.Value)) }

func (c *Context) EnableVertexAttribArray(a glquad.Attrib) {
	c.gl.Call("enableVertexAttribArray", int(a))
}

func (c *Context) VertexAttribPointer(a glquad.Attrib, size int, ty glquad.Enum, normalized bool, stride, offset int) {
	c.gl.Call("vertexAttribPointer", int(a), size, int(ty), normalized, stride, offset)
}

func (c *Context) CreateTexture() glquad.Texture {
	return glquad.Texture{Value: handle(c.gl.Call("createTexture"))}
}

func (c *Context) ActiveTexture(unit glquad.Enum) { c.gl.Call("activeTexture", int(unit)) }

func (c *Context) BindTexture(target glquad.Enum, t glquad.Texture) {
	c.gl.Call("bindTexture", int(target), value(t.Value))
}

func (c *Context) TexParameteri(target, pname glquad.Enum, param int) {
	c.gl.Call("texParameteri", int(target), int(pname), param)
}

func (c *Context) TexImage2D(target glquad.Enum, level int, internalFormat glquad.Enum, width, height int, format, ty glquad.Enum, pix []byte) {
	c.gl.Call("texImage2D", int(target), level, int(internalFormat), width, height, 0, int(format), int(ty), c.bytes(pix))
}

func (c *Context) DeleteTexture(t glquad.Texture) { c.gl.Call("deleteTexture", value(t.Value)) }

func (c *Context) UniformMatrix4fv(u glquad.Uniform, m [16]float32) {
	c.gl.Call("uniformMatrix4fv", value(u.Value), false, c.floats(m[:]))
}

func (c *Context) Uniform1i(u glquad.Uniform, v int) { c.gl.Call("uniform1i", value(u.Value), v) }

func (c *Context) Enable(cap glquad.Enum) { c.gl.Call("enable", int(cap)) }

func (c *Context) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA glquad.Enum) {
	c.gl.Call("blendFuncSeparate", int(srcRGB), int(dstRGB), int(srcA), int(dstA))
}

func (c *Context) DrawArrays(mode glquad.Enum, first, count int) {
	c.gl.Call("drawArrays", int(mode), first, count)
}

var _ glquad.GL = (*Context)(nil)
