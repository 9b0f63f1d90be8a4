package datex

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
	"go.uber.org/zap"
)

const (
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	// If the feed omits overallEndTime the record is valid until further
	// notice; store a far-future end instead.
	untilFurtherNotice = 365 * 24 * time.Hour
	commentLang        = "no"
)

// Parser turns a Datex II snapshot document into situations with records.
// A record that fails validation (missing or unparsable timestamp) is
// skipped with a warning; a document that does not parse at all is an error
// for the caller to treat like a failed fetch.
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{
		logger: logger,
		now:    time.Now,
	}
}

func (p *Parser) Parse(data []byte) ([]models.Situation, error) {
	var root node
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return nil, fmt.Errorf("error parsing situation document: %v", err)
	}

	var situations []models.Situation
	for _, situation := range root.findAll("situation") {
		parsed, err := p.parseSituation(situation)
		if err != nil {
			p.logger.Warn("Skipping situation",
				zap.String("id", situation.attr("", "id")),
				zap.Error(err))
			continue
		}
		situations = append(situations, parsed)
	}
	return situations, nil
}

func (p *Parser) parseSituation(element *node) (models.Situation, error) {
	id := element.attr("", "id")
	versionTime, err := parseTime(element.findText("situationVersionTime"))
	if err != nil {
		return models.Situation{}, fmt.Errorf("invalid situation version time: %v", err)
	}

	situation := models.Situation{
		ID:          id,
		VersionTime: versionTime,
		IsActive:    true,
	}

	for _, record := range element.findAllDirect("situationRecord") {
		parsed, err := p.parseRecord(record, id)
		if err != nil {
			p.logger.Warn("Skipping situation record",
				zap.String("situation_id", id),
				zap.String("record_id", record.attr("", "id")),
				zap.Error(err))
			continue
		}
		situation.Records = append(situation.Records, parsed)
	}
	return situation, nil
}

func (p *Parser) parseRecord(element *node, situationID string) (models.Record, error) {
	version, _ := strconv.Atoi(element.attr("", "version"))

	versionTime, err := parseTime(element.findText("situationRecordVersionTime"))
	if err != nil {
		return models.Record{}, fmt.Errorf("invalid record version time: %v", err)
	}
	validFrom, err := parseTime(element.findText("overallStartTime"))
	if err != nil {
		return models.Record{}, fmt.Errorf("invalid record start time: %v", err)
	}

	validTo := p.now().UTC().Add(untilFurtherNotice)
	if endText := element.findText("overallEndTime"); endText != "" {
		validTo, err = parseTime(endText)
		if err != nil {
			return models.Record{}, fmt.Errorf("invalid record end time: %v", err)
		}
	}

	return models.Record{
		SituationID: situationID,
		ID:          element.attr("", "id"),
		Version:     version,
		Type:        localTypeName(element.attr(xsiNamespace, "type")),
		VersionTime: versionTime,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Area:        element.findLangText("areaName", commentLang),
		Location:    element.findLangText("locationDescription", commentLang),
		Comment:     element.findLangText("generalPublicComment", commentLang),
	}, nil
}

// localTypeName reduces a namespaced xsi type like "ns12:VehicleObstruction"
// to its local name.
func localTypeName(qualified string) string {
	if i := strings.LastIndex(qualified, ":"); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func parseTime(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	return time.Parse(time.RFC3339, text)
}

// node is a minimal XML tree so fields can be looked up by local name at
// any depth, the way the feed's schema nests them.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) attr(space, local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value
		}
	}
	return ""
}

// findAll returns every descendant element with the given local name.
func (n *node) findAll(local string) []*node {
	var found []*node
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local == local {
			found = append(found, child)
		}
		found = append(found, child.findAll(local)...)
	}
	return found
}

// findAllDirect returns direct children with the given local name.
func (n *node) findAllDirect(local string) []*node {
	var found []*node
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			found = append(found, &n.Nodes[i])
		}
	}
	return found
}

// find returns the first descendant element with the given local name.
func (n *node) find(local string) *node {
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local == local {
			return child
		}
		if found := child.find(local); found != nil {
			return found
		}
	}
	return nil
}

// findText returns the trimmed text of the first matching descendant, or "".
func (n *node) findText(local string) string {
	if found := n.find(local); found != nil {
		return strings.TrimSpace(found.Text)
	}
	return ""
}

// findLangText returns the first value element in the given language below
// the first matching descendant, or "".
func (n *node) findLangText(local, lang string) string {
	container := n.find(local)
	if container == nil {
		return ""
	}
	for _, value := range container.findAll("value") {
		if value.attr("", "lang") == lang {
			return strings.TrimSpace(value.Text)
		}
	}
	return ""
}
