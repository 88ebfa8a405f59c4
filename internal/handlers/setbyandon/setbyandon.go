// Package setbyandon overrides the audit stamps of a record being created.
//
// The creating request passes a "tag" input parameter, anywhere in the
// context chain, holding {By, On} as JSON or YAML. By becomes createdby and
// modifiedby, On becomes createdon and modifiedon.
package setbyandon

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/plugin/validators"
	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// Name is the registration name of the handler.
const Name = "setbyandon.SetByAndOn"

// TagKey is the input parameter carrying the payload.
const TagKey = "tag"

func init() {
	plugin.Declare(Name,
		func() plugin.Validator { return validators.TargetEntity(false) },
		func() plugin.Validator { return validators.Stage(xrm.StagePreOperation, false) },
		func() plugin.Validator { return validators.Message(xrm.MessageCreate, false) },
	)
}

// OnAndBy is the tag payload.
type OnAndBy struct {
	By string     `json:"By" yaml:"By"`
	On *time.Time `json:"On" yaml:"On"`
}

// Handler applies the tag payload to the target.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return Name }

func (h *Handler) Execute(s *plugin.Setup) error {
	log := s.Logging()

	target, err := s.Helper().TargetEntity()
	if err != nil {
		return err
	}

	raw, _ := s.Helper().FindInParentChain(xrm.InputParameters, TagKey)
	text := ""
	if raw != nil {
		text = strings.TrimSpace(fmt.Sprint(raw))
	}
	if text == "" {
		log.Write("tag is empty. Exiting plugin.")
		return nil
	}
	log.Write("tag: \n [START] \n %s \n [END]", text)

	values, ok := Parse(text, log)
	if !ok {
		log.Write("tag deserialization resulted in no value. Exiting plugin.")
		return nil
	}

	if values.By != "" {
		log.Write("By: %s", values.By)
		if userID, err := uuid.Parse(values.By); err == nil {
			log.Write("Setting createdby and modifiedby to %s", userID)
			by := xrm.EntityReference{LogicalName: "systemuser", ID: userID}
			target.Set("createdby", by)
			target.Set("modifiedby", by)
		} else {
			log.Write("Could not parse By as a uuid. Skipping.")
		}
	}

	if values.On != nil {
		log.Write("Setting createdon and modifiedon to %s", values.On.Format(time.RFC3339))
		target.Set("createdon", *values.On)
		target.Set("modifiedon", *values.On)
	} else {
		log.Write("On is nil. Skipping.")
	}

	log.Write("%s completed operation successfully.", s.ClassName())
	return nil
}

// Parse decodes text as JSON when it opens with "{", otherwise as YAML.
// Decode errors are logged and reported as !ok.
func Parse(text string, log *tracing.Logger) (OnAndBy, bool) {
	var v OnAndBy
	if strings.HasPrefix(text, "{") {
		log.Write("Json Deserialization")
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			log.Write("Error deserializing json")
			log.WriteError(err)
			return OnAndBy{}, false
		}
		log.Write("Json Deserialization completed without error.")
		return v, true
	}

	log.Write("Yaml Deserialization")
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		log.Write("Error deserializing yaml")
		log.WriteError(err)
		return OnAndBy{}, false
	}
	log.Write("Yaml Deserialization completed without error.")
	return v, true
}
