package render

import "math"

// Light is a colored point light in grid space.
type Light struct {
	X, Y, Z float64
	R, G, B float64
}

// Camera is the eye position used for the specular term.
type Camera struct {
	X, Y, Z float64
}

// Shading constants matching the reference scene: full diffuse, a touch of
// specular, fragments on the z=10 plane, quadratic distance attenuation.
const (
	fragmentZ   = 10.0
	diffuseK    = 1.0
	specularK   = 0.2
	shininess   = 1.0
	attenLinear = 0.1
	attenQuad   = 0.01
)

// ShadeRows lights the framebuffer rows [y0, y1) in place from the normal
// map. Callers partition rows disjointly across workers; elements outside
// the range are untouched, so concurrent workers never race.
func ShadeRows(fb *FrameBuffer, nb *NormalBuffer, lights []Light, cam Camera, y0, y1 int) error {
	width := nb.Width
	normal := make([]float64, nb.Format().NumFields())
	for y := y0; y < y1; y++ {
		for x := 0; x < width; x++ {
			if err := nb.GetInto(normal, nb.Index(x, y)); err != nil {
				return err
			}
			nx, ny, nz := normal[0], normal[1], normal[2]
			var illumR, illumG, illumB float64
			for _, light := range lights {
				dx := light.X - float64(x)
				dy := light.Y - float64(y)
				dz := light.Z - fragmentZ
				distSqr := dx*dx + dy*dy + dz*dz
				dist := math.Sqrt(distSqr)
				attenuation := 1 / (1 + attenLinear*dist + attenQuad*distSqr)

				invDist := 1 / dist
				ix, iy, iz := dx*invDist, dy*invDist, dz*invDist

				// Reflect the incident direction around the normal for the
				// specular term.
				k := 2 * (nx*ix + ny*iy + nz*iz)
				rx, ry, rz := nx*k-ix, ny*k-iy, nz*k-iz

				spec := (cam.X-float64(x))*rx + (cam.Y-float64(y))*ry + (cam.Z-fragmentZ)*rz
				if spec < 0 {
					spec = 0
				}
				intensity := (diffuseK*(nx*ix+ny*iy+nz*iz) +
					specularK*math.Pow(spec, shininess)) * attenuation
				if intensity > 0 {
					illumR += intensity * light.R
					illumG += intensity * light.G
					illumB += intensity * light.B
				}
			}
			r, g, b, err := fb.Pixel(x, y)
			if err != nil {
				return err
			}
			err = fb.SetPixel(x, y,
				scaleChannel(r, illumR),
				scaleChannel(g, illumG),
				scaleChannel(b, illumB))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func scaleChannel(base byte, illum float64) byte {
	v := math.Round((illum + 0.5) * float64(base))
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return byte(v)
}
