package glquad

// Attribute and uniform names shared by the shader sources and the renderer.
const (
	PositionAttrib = "a_position"
	UVAttrib       = "a_uv"
	MatrixUniform  = "u_matrix"
	TextureUniform = "u_texture"
)

// VertexShaderSource transforms a homogeneous position by the view-projection
// matrix and passes the texture coordinate through.
const VertexShaderSource = `
uniform mat4 u_matrix;
attribute vec4 a_position;
attribute vec2 a_uv;
varying vec2 v_uv;

void main() {
    gl_Position = u_matrix * a_position;
    v_uv = a_uv;
}
`

// FragmentShaderSource writes the sampled texel unmodified, alpha included.
// It compiles as GLSL ES 1.00 and desktop GLSL 1.10.
const FragmentShaderSource = `
#ifdef GL_ES
precision mediump float;
#endif
uniform sampler2D u_texture;
varying vec2 v_uv;

void main() {
    gl_FragColor = texture2D(u_texture, v_uv);
}
`
