package export

// Renderer bundles the document renderers behind one value for injection.
type Renderer struct{}

func (Renderer) PDF(c Content, title string, d Design) ([]byte, error)  { return PDF(c, title, d) }
func (Renderer) DOCX(c Content, title string, d Design) ([]byte, error) { return DOCX(c, title, d) }
func (Renderer) HTML(c Content, title string, d Design) ([]byte, error) { return HTML(c, title, d) }
