package compositor

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type faceKey struct {
	size   float64
	bold   bool
	italic bool
}

// FaceCache parses the bundled font variants once and hands out sized
// faces on demand. Faces are cached per size/style combination because
// truetype face construction is not free and text clips redraw every
// frame.
type FaceCache struct {
	mu    sync.Mutex
	fonts map[[2]bool]*truetype.Font
	faces map[faceKey]font.Face
}

func NewFaceCache() *FaceCache {
	fonts := make(map[[2]bool]*truetype.Font, 4)
	for _, v := range []struct {
		bold, italic bool
		data         []byte
	}{
		{false, false, goregular.TTF},
		{true, false, gobold.TTF},
		{false, true, goitalic.TTF},
		{true, true, gobolditalic.TTF},
	} {
		f, err := truetype.Parse(v.data)
		if err != nil {
			// bundled fonts parse; a failure here is a build defect
			panic(err)
		}
		fonts[[2]bool{v.bold, v.italic}] = f
	}
	return &FaceCache{
		fonts: fonts,
		faces: make(map[faceKey]font.Face),
	}
}

// Face returns a rendering face for the given style. FontFamily from the
// clip styling is advisory; rendering always uses the bundled family so
// output does not depend on host fonts.
func (fc *FaceCache) Face(size float64, bold, italic bool) font.Face {
	if size <= 0 {
		size = 12
	}
	key := faceKey{size: size, bold: bold, italic: italic}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if face, ok := fc.faces[key]; ok {
		return face
	}
	face := truetype.NewFace(fc.fonts[[2]bool{bold, italic}], &truetype.Options{
		Size: size,
	})
	fc.faces[key] = face
	return face
}
