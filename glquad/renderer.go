package glquad

import (
	"image"

	"github.com/olablt/tilebridge/geo"
)

// State is the renderer lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Failed
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Released:
		return "released"
	}
	return "unknown"
}

// VertexCount is the number of vertices drawn per frame: two triangles.
const VertexCount = 6

// quadUVs maps the six vertices to texture corners. The first canvas row
// is v=0, so the top edge of the quad samples the top of the image.
var quadUVs = [VertexCount * 2]float32{
	0, 0,
	0, 1,
	1, 0,
	1, 0,
	0, 1,
	1, 1,
}

// Renderer owns the GPU objects for one textured quad. It is driven from the
// host's render goroutine only and is not safe for concurrent use.
type Renderer struct {
	state State

	program   Program
	positions Buffer
	uvs       Buffer
	texture   Texture

	positionLoc Attrib
	uvLoc       Attrib
	matrixLoc   Uniform
	textureLoc  Uniform

	// reused per frame so rendering never allocates
	vertices [VertexCount * 4]float32
	scratch  []byte
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) State() State { return r.state }

// Initialize compiles and links the shaders and allocates the buffers and the
// texture. On failure every object created so far is deleted, the state
// becomes Failed and later frames draw nothing.
func (r *Renderer) Initialize(gl GL) error {
	if r.state != Uninitialized {
		return ErrInitialized
	}
	if err := r.init(gl); err != nil {
		r.deleteObjects(gl)
		r.state = Failed
		return err
	}
	r.state = Ready
	return nil
}

func (r *Renderer) init(gl GL) error {
	vs, err := compileShader(gl, VERTEX_SHADER, VertexShaderSource)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl, FRAGMENT_SHADER, FragmentShaderSource)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(fs)

	r.program = gl.CreateProgram()
	gl.AttachShader(r.program, vs)
	gl.AttachShader(r.program, fs)
	gl.LinkProgram(r.program)
	if gl.GetProgrami(r.program, LINK_STATUS) == 0 {
		return &ProgramLinkError{Log: gl.GetProgramInfoLog(r.program)}
	}

	if r.positionLoc = gl.GetAttribLocation(r.program, PositionAttrib); !r.positionLoc.Valid() {
		return &LocationError{Name: PositionAttrib}
	}
	if r.uvLoc = gl.GetAttribLocation(r.program, UVAttrib); !r.uvLoc.Valid() {
		return &LocationError{Name: UVAttrib}
	}
	if r.matrixLoc = gl.GetUniformLocation(r.program, MatrixUniform); !r.matrixLoc.Valid() {
		return &LocationError{Name: MatrixUniform}
	}
	if r.textureLoc = gl.GetUniformLocation(r.program, TextureUniform); !r.textureLoc.Valid() {
		return &LocationError{Name: TextureUniform}
	}

	r.positions = gl.CreateBuffer()

	r.uvs = gl.CreateBuffer()
	gl.BindBuffer(ARRAY_BUFFER, r.uvs)
	gl.BufferData(ARRAY_BUFFER, quadUVs[:], STATIC_DRAW)

	r.texture = gl.CreateTexture()
	gl.BindTexture(TEXTURE_2D, r.texture)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MIN_FILTER, int(LINEAR))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MAG_FILTER, int(LINEAR))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_S, int(CLAMP_TO_EDGE))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_T, int(CLAMP_TO_EDGE))
	return nil
}

func compileShader(gl GL, ty Enum, src string) (Shader, error) {
	s := gl.CreateShader(ty)
	gl.ShaderSource(s, src)
	gl.CompileShader(s)
	if gl.GetShaderi(s, COMPILE_STATUS) == 0 {
		log := gl.GetShaderInfoLog(s)
		gl.DeleteShader(s)
		stage := "vertex"
		if ty == FRAGMENT_SHADER {
			stage = "fragment"
		}
		return Shader{}, &ShaderCompileError{Stage: stage, Log: log}
	}
	return s, nil
}

// RenderFrame draws pixels stretched over extent (EPSG:4326 degrees) through
// matrix, a column-major view-projection matrix over normalized Mercator
// coordinates. Outside the Ready state it does nothing.
func (r *Renderer) RenderFrame(gl GL, matrix [16]float32, extent geo.Extent, pixels *image.NRGBA) {
	if r.state != Ready {
		return
	}
	bl := geo.PointToMercator(geo.LngLat{Lng: extent[0], Lat: extent[1]})
	tr := geo.PointToMercator(geo.LngLat{Lng: extent[2], Lat: extent[3]})
	r.vertices = QuadVertices(bl, tr)

	gl.UseProgram(r.program)

	gl.BindBuffer(ARRAY_BUFFER, r.positions)
	gl.BufferData(ARRAY_BUFFER, r.vertices[:], DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(r.positionLoc)
	gl.VertexAttribPointer(r.positionLoc, 4, FLOAT, false, 0, 0)

	gl.BindBuffer(ARRAY_BUFFER, r.uvs)
	gl.EnableVertexAttribArray(r.uvLoc)
	gl.VertexAttribPointer(r.uvLoc, 2, FLOAT, false, 0, 0)

	gl.ActiveTexture(TEXTURE0)
	gl.BindTexture(TEXTURE_2D, r.texture)
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MIN_FILTER, int(LINEAR))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_MAG_FILTER, int(LINEAR))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_S, int(CLAMP_TO_EDGE))
	gl.TexParameteri(TEXTURE_2D, TEXTURE_WRAP_T, int(CLAMP_TO_EDGE))
	if pixels != nil && !pixels.Rect.Empty() {
		w, h := pixels.Rect.Dx(), pixels.Rect.Dy()
		gl.TexImage2D(TEXTURE_2D, 0, RGBA, w, h, RGBA, UNSIGNED_BYTE, r.packed(pixels))
	}

	gl.UniformMatrix4fv(r.matrixLoc, matrix)
	gl.Uniform1i(r.textureLoc, 0)

	gl.Enable(BLEND)
	gl.BlendFuncSeparate(SRC_ALPHA, ONE_MINUS_SRC_ALPHA, ONE, ONE_MINUS_SRC_ALPHA)

	gl.DrawArrays(TRIANGLES, 0, VertexCount)
}

// packed returns the image rows without stride padding.
func (r *Renderer) packed(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := w * 4
	if img.Stride == rowLen {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
		return img.Pix[start : start+rowLen*h]
	}
	if cap(r.scratch) < rowLen*h {
		r.scratch = make([]byte, rowLen*h)
	}
	buf := r.scratch[:rowLen*h]
	for y := 0; y < h; y++ {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(buf[y*rowLen:(y+1)*rowLen], img.Pix[start:start+rowLen])
	}
	return buf
}

// QuadVertices returns the two triangles covering the rectangle from bl to tr
// as homogeneous (x, y, 0, 1) positions, in the order matching the UV buffer.
func QuadVertices(bl, tr geo.MercatorCoordinate) [VertexCount * 4]float32 {
	x0, y0 := float32(bl.X), float32(bl.Y)
	x1, y1 := float32(tr.X), float32(tr.Y)
	return [VertexCount * 4]float32{
		x0, y1, 0, 1,
		x0, y0, 0, 1,
		x1, y1, 0, 1,
		x1, y1, 0, 1,
		x0, y0, 0, 1,
		x1, y0, 0, 1,
	}
}

// Release deletes the GPU objects. It is safe to call in any state and more
// than once.
func (r *Renderer) Release(gl GL) {
	if r.state == Released {
		return
	}
	r.deleteObjects(gl)
	r.state = Released
}

func (r *Renderer) deleteObjects(gl GL) {
	if r.texture.Valid() {
		gl.DeleteTexture(r.texture)
		r.texture = Texture{}
	}
	if r.positions.Valid() {
		gl.DeleteBuffer(r.positions)
		r.positions = Buffer{}
	}
	if r.uvs.Valid() {
		gl.DeleteBuffer(r.uvs)
		r.uvs = Buffer{}
	}
	if r.program.Valid() {
		gl.DeleteProgram(r.program)
		r.program = Program{}
	}
}
