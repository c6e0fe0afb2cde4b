package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path"
	"path/filepath"
	"strings"

	"github.com/dtnitsch/layout-editor/internal/common"
	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/storage"
)

// ErrInvalidUpload is returned when an uploaded pair cannot become a page.
var ErrInvalidUpload = errors.New("invalid upload")

// SaveUpload stores an uploaded box list and page image under the named root
// and returns the new page. The image is renamed after the JSON file so the
// pair is found by the next scan.
func (c *Catalog) SaveUpload(rootName, jsonName string, jsonData []byte, imageName string, imageData []byte) (PageInfo, error) {
	var root *Root
	for i := range c.roots {
		if c.roots[i].Name == rootName {
			root = &c.roots[i]
			break
		}
	}
	if root == nil {
		return PageInfo{}, fmt.Errorf("upload root %q: %w", rootName, ErrNotFound)
	}

	jsonName = common.SanitizeFilename(jsonName)
	imageName = common.SanitizeFilename(imageName)
	if jsonName == "" || imageName == "" {
		return PageInfo{}, fmt.Errorf("%w: no file selected", ErrInvalidUpload)
	}
	if !strings.EqualFold(filepath.Ext(jsonName), ".json") {
		return PageInfo{}, fmt.Errorf("%w: %s is not a .json file", ErrInvalidUpload, jsonName)
	}
	imageExt := strings.ToLower(filepath.Ext(imageName))
	if !isImageExt(imageExt) {
		return PageInfo{}, fmt.Errorf("%w: %s is not a supported image", ErrInvalidUpload, imageName)
	}

	if _, err := models.DecodeBoxes(jsonData); err != nil {
		return PageInfo{}, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(imageData)); err != nil {
		return PageInfo{}, fmt.Errorf("%w: image: %v", ErrInvalidUpload, err)
	}

	stem := strings.TrimSuffix(jsonName, filepath.Ext(jsonName))
	store := storage.New(root.Dir)
	if err := store.SaveFile(stem+".json", jsonData); err != nil {
		return PageInfo{}, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := store.SaveFile(stem+imageExt, imageData); err != nil {
		return PageInfo{}, fmt.Errorf("failed to store upload: %w", err)
	}

	docStem, pageNo := SplitPageNumber(stem)
	return c.Page(path.Join(root.Name, docStem), pageNo)
}

func isImageExt(ext string) bool {
	for _, e := range ImageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
