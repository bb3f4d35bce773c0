package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`
	docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`
	docxCoreProps = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>%s</dc:title>
<dc:creator>ATS Resume Analyzer</dc:creator>
</cp:coreProperties>`
	docxDocumentOpen  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" + `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxDocumentClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1000" w:right="1000" w:bottom="1000" w:left="1000"/></w:sectPr></w:body></w:document>`
)

// DOCX renders content as a minimal WordprocessingML package.
func DOCX(c Content, title string, design Design) ([]byte, error) {
	d := &docxBody{color: strings.TrimPrefix(design.PrimaryColor, "#")}

	if !c.IsStructured() {
		d.para(title, runStyle{bold: true, size: 32, colored: true})
		for _, line := range strings.Split(c.Text, "\n") {
			d.para(line, runStyle{size: 21})
		}
	} else {
		name := c.PersonalInfo.FullName
		if name == "" {
			name = title
		}
		d.para(name, runStyle{bold: true, size: 40, colored: true})
		d.para(c.ContactLine(), runStyle{size: 18})

		if c.Summary != "" {
			d.heading("Professional Summary")
			d.para(c.Summary, runStyle{size: 21})
		}
		if len(c.Experience) > 0 {
			d.heading("Experience")
			for _, exp := range c.Experience {
				d.para(joinNonEmpty(" - ", exp.Title, exp.Company), runStyle{bold: true, size: 22})
				d.para(joinNonEmpty(" | ", exp.Location, exp.Period()), runStyle{italic: true, size: 18})
				d.para(exp.Description, runStyle{size: 21})
				for _, h := range exp.Highlights {
					d.para("• "+h, runStyle{size: 21})
				}
			}
		}
		if len(c.Education) > 0 {
			d.heading("Education")
			for _, edu := range c.Education {
				d.para(joinNonEmpty(" - ", edu.Degree, edu.Institution), runStyle{bold: true, size: 22})
				d.para(joinNonEmpty(" | ", edu.Location, edu.Period()), runStyle{italic: true, size: 18})
			}
		}
		if len(c.Skills) > 0 {
			d.heading("Skills")
			d.para(strings.Join(c.Skills, ", "), runStyle{size: 21})
		}
		if len(c.Certifications) > 0 {
			d.heading("Certifications")
			for _, cert := range c.Certifications {
				d.para("• "+joinNonEmpty(" - ", cert.Name, cert.Issuer, cert.Date), runStyle{size: 21})
			}
		}
		if len(c.Projects) > 0 {
			d.heading("Projects")
			for _, p := range c.Projects {
				d.para(p.Name, runStyle{bold: true, size: 22})
				d.para(p.Description, runStyle{size: 21})
				d.para(strings.Join(p.Technologies, ", "), runStyle{italic: true, size: 18})
			}
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"docProps/core.xml", fmt.Sprintf(docxCoreProps, escapeXML(title))},
		{"word/document.xml", docxDocumentOpen + d.buf.String() + docxDocumentClose},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx close: %w", err)
	}
	return buf.Bytes(), nil
}

type runStyle struct {
	bold    bool
	italic  bool
	colored bool
	size    int
}

type docxBody struct {
	buf   strings.Builder
	color string
}

func (d *docxBody) heading(text string) {
	d.buf.WriteString(`<w:p><w:pPr><w:spacing w:before="240" w:after="60"/><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="`)
	d.buf.WriteString(d.color)
	d.buf.WriteString(`"/></w:pBdr></w:pPr>`)
	d.run(strings.ToUpper(text), runStyle{bold: true, size: 24, colored: true})
	d.buf.WriteString(`</w:p>`)
}

func (d *docxBody) para(text string, style runStyle) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.buf.WriteString(`<w:p>`)
	d.run(text, style)
	d.buf.WriteString(`</w:p>`)
}

func (d *docxBody) run(text string, style runStyle) {
	d.buf.WriteString(`<w:r><w:rPr>`)
	if style.bold {
		d.buf.WriteString(`<w:b/>`)
	}
	if style.italic {
		d.buf.WriteString(`<w:i/>`)
	}
	if style.colored && d.color != "" {
		d.buf.WriteString(`<w:color w:val="` + d.color + `"/>`)
	}
	if style.size > 0 {
		fmt.Fprintf(&d.buf, `<w:sz w:val="%d"/>`, style.size)
	}
	d.buf.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	d.buf.WriteString(escapeXML(text))
	d.buf.WriteString(`</w:t></w:r>`)
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
