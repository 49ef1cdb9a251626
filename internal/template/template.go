package template

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"talkvid/internal/artifact"
	"talkvid/internal/services"
)

// Template is an SVG document addressed by the hash of how it was derived.
// Every editing method returns a new Template and leaves the receiver as is.
type Template struct {
	doc  *etree.Document
	key  artifact.Key
	name string
}

// Load reads an SVG file. Its key derives from the file's input hash, so the
// same content at two paths yields the same key.
func Load(store *artifact.Store, path string) (*Template, error) {
	inputKey, err := store.Input(path)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("parse svg %s: %w", path, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse svg %s: no root element", path)
	}
	return &Template{
		doc:  doc,
		key:  artifact.New("svg.load").Hash(inputKey).Sum(),
		name: filepath.Base(path),
	}, nil
}

// Parse builds a template from SVG bytes. name only appears in messages.
func Parse(name string, data []byte) (*Template, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse svg %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse svg %s: no root element", name)
	}
	return &Template{
		doc:  doc,
		key:  artifact.New("svg.bytes").Bytes(data).Sum(),
		name: name,
	}, nil
}

// Key identifies the document content.
func (t *Template) Key() artifact.Key { return t.key }

// Name is the file name the template was loaded from.
func (t *Template) Name() string { return t.name }

func (t *Template) derive(h *artifact.Hasher) *Template {
	return &Template{doc: t.doc.Copy(), key: h.Hash(t.key).Sum(), name: t.name}
}

// WithText replaces the text of the element with the given id. A flowed text
// element gets the text in its first flowPara, a text element in its first
// tspan; any other element has its own text replaced.
func (t *Template) WithText(id, text string) (*Template, error) {
	text = norm.NFC.String(text)
	out := t.derive(artifact.New("svg.text").String(id).String(text))
	elems := findByID(out.doc.Root(), id)
	if len(elems) == 0 {
		return nil, out.missing("with_text", id)
	}
	for _, elem := range elems {
		setText(elem, text)
	}
	return out, nil
}

// Without removes every element with the given id.
func (t *Template) Without(id string) (*Template, error) {
	out := t.derive(artifact.New("svg.without").String(id))
	elems := findByID(out.doc.Root(), id)
	if len(elems) == 0 {
		return nil, out.missing("without", id)
	}
	for _, elem := range elems {
		if parent := elem.Parent(); parent != nil {
			parent.RemoveChild(elem)
		}
	}
	return out, nil
}

// WithImage turns the element with the given id into an image referencing
// img, stretched over the element's x, y, width and height.
func (t *Template) WithImage(id string, img artifact.Ref) (*Template, error) {
	out := t.derive(artifact.New("svg.image").String(id).Hash(img.Key))
	elems := findByID(out.doc.Root(), id)
	if len(elems) == 0 {
		return nil, out.missing("with_image", id)
	}
	root := out.doc.Root()
	if root.SelectAttr("xmlns:xlink") == nil {
		root.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	}
	href, err := filepath.Abs(img.Path)
	if err != nil {
		href = img.Path
	}
	for _, elem := range elems {
		box := make(map[string]string, 4)
		for _, name := range []string{"width", "height", "x", "y"} {
			box[name] = elem.SelectAttrValue(name, "0")
		}
		elem.Space = ""
		elem.Tag = "image"
		elem.Attr = nil
		elem.Child = nil
		elem.CreateAttr("id", id)
		elem.CreateAttr("xlink:href", href)
		for _, name := range []string{"width", "height", "x", "y"} {
			elem.CreateAttr(name, box[name])
		}
		elem.CreateAttr("preserveAspectRatio", "none")
	}
	return out, nil
}

// Resized sets the document's width and height attributes.
func (t *Template) Resized(width, height int) *Template {
	out := t.derive(artifact.New("svg.resize").Int(int64(width)).Int(int64(height)))
	root := out.doc.Root()
	root.CreateAttr("width", strconv.Itoa(width))
	root.CreateAttr("height", strconv.Itoa(height))
	return out
}

// Width returns the document width in pixels.
func (t *Template) Width() (int, error) { return t.dimension("width") }

// Height returns the document height in pixels.
func (t *Template) Height() (int, error) { return t.dimension("height") }

func (t *Template) dimension(name string) (int, error) {
	raw := strings.TrimSpace(t.doc.Root().SelectAttrValue(name, ""))
	value, err := strconv.ParseFloat(strings.TrimSuffix(raw, "px"), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrMissingElement, "template", name,
			fmt.Sprintf("%s has no usable %s attribute (%q)", t.name, name, raw), nil)
	}
	return int(value), nil
}

// Bytes serializes the document.
func (t *Template) Bytes() ([]byte, error) {
	return t.doc.WriteToBytes()
}

// Save materializes the document as an .svg artifact and returns its path.
func (t *Template) Save(ctx context.Context, store *artifact.Store) (string, error) {
	desc := artifact.Description{Key: t.key, Ext: ".svg", Label: "template " + t.name}
	return store.GetOrBuildBytes(ctx, desc, func(context.Context) ([]byte, error) {
		return t.Bytes()
	})
}

func (t *Template) missing(op, id string) error {
	return services.Wrap(services.ErrMissingElement, "template", op,
		fmt.Sprintf("no element with id %q in %s", id, t.name), nil)
}

func findByID(root *etree.Element, id string) []*etree.Element {
	if root == nil {
		return nil
	}
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(elem *etree.Element) {
		if elem.SelectAttrValue("id", "") == id {
			found = append(found, elem)
		}
		for _, child := range elem.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return found
}

func setText(elem *etree.Element, text string) {
	for _, tag := range []string{"flowPara", "tspan"} {
		children := childrenByTag(elem, tag)
		if len(children) == 0 {
			continue
		}
		children[0].SetText(text)
		for _, extra := range children[1:] {
			elem.RemoveChild(extra)
		}
		return
	}
	elem.SetText(text)
}

func childrenByTag(elem *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range elem.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}
