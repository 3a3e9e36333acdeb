// SPDX-License-Identifier: Unlicense OR MIT

package compositor

import "gioui.org/shader"

var (
	blitVert = shader.Sources{
		Name: "blit.vert",
		Inputs: []shader.InputLocation{
			{Name: "pos", Location: 0, Semantic: "POSITION", Type: shader.DataTypeFloat, Size: 2},
			{Name: "uv", Location: 1, Semantic: "TEXCOORD", Type: shader.DataTypeFloat, Size: 2},
		},
		GLSL100ES: `#version 100

precision highp float;

attribute vec2 pos;
attribute vec2 uv;

varying vec2 vUV;

void main() {
    gl_Position = vec4(pos, 0, 1);
    vUV = uv;
}
`,
	}
	blitFrag = shader.Sources{
		Name:     "blit.frag",
		Textures: []shader.TextureBinding{{Name: "tex", Binding: 0}},
		GLSL100ES: `#version 100

precision mediump float;

uniform sampler2D tex;
varying vec2 vUV;

void main() {
    gl_FragColor = texture2D(tex, vUV);
}
`,
	}
)
