package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBPMN = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <bpmn:process id="Process_1">
    <bpmn:task id="Task_1" name="Fill out form"/>
    <bpmn:task id="Task_2" name="Confirm"/>
  </bpmn:process>
</bpmn:definitions>`

func TestParseXMLAndNamespaceAgnosticQuery(t *testing.T) {
	doc := ParseXML([]byte(testBPMN))
	require.True(t, doc.Exists())
	names := doc.Texts("//bpmn:task/@name")
	_ = names // @name on Texts returns empty inner text; use Attr-based query instead
	ids := doc.Query("//bpmn:task")
	tasks := ids.List()
	assert.Len(t, tasks, 2)
	assert.Equal(t, "Task_1", tasks[0].SelectAttr("id"))
	assert.Equal(t, "Fill out form", tasks[0].SelectAttr("name"))
}

func TestAttrHelper(t *testing.T) {
	doc := ParseXML([]byte(testBPMN))
	assert.Equal(t, "Process_1", doc.Attr("//bpmn:process", "id"))
}

func TestQueryResolvesDocumentLocalNamespace(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<acme:root xmlns:acme="http://example.com/acme">
  <acme:item id="1"/>
  <acme:item id="2"/>
</acme:root>`

	x := ParseXML([]byte(doc))
	require.True(t, x.Exists())
	items := x.Query("//acme:item").List()
	assert.Len(t, items, 2)
	assert.Equal(t, "1", items[0].SelectAttr("id"))
}

func TestParseXMLHardFailureIsEmpty(t *testing.T) {
	doc := ParseXML([]byte("<<not xml"))
	assert.False(t, doc.Exists())
	assert.Equal(t, "<empty XML>", doc.String())
}

func TestEqualXML(t *testing.T) {
	a := ParseXML([]byte(`<a><b/></a>`))
	b := ParseXML([]byte(`<a><b/></a>`))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(EmptyXML))
}
