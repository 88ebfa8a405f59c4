package xrm

import "fmt"

// PipelineStage is the host pipeline stage a handler is registered on.
type PipelineStage int

const (
	StagePreValidation PipelineStage = 10
	StagePreOperation  PipelineStage = 20
	StageMainOperation PipelineStage = 30
	StagePostOperation PipelineStage = 40
)

func (s PipelineStage) String() string {
	switch s {
	case StagePreValidation:
		return "PreValidation"
	case StagePreOperation:
		return "PreOperation"
	case StageMainOperation:
		return "MainOperation"
	case StagePostOperation:
		return "PostOperation"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ExecutionMode reports whether the host runs the handler inline or queued.
type ExecutionMode int

const (
	ModeSynchronous  ExecutionMode = 0
	ModeAsynchronous ExecutionMode = 1
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeSynchronous:
		return "Synchronous"
	case ModeAsynchronous:
		return "Asynchronous"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// IsolationMode reports whether the handler runs inside the host sandbox.
type IsolationMode int

const (
	IsolationNone    IsolationMode = 1
	IsolationSandbox IsolationMode = 2
)

func (m IsolationMode) String() string {
	switch m {
	case IsolationNone:
		return "None"
	case IsolationSandbox:
		return "Sandbox"
	}
	return fmt.Sprintf("Isolation(%d)", int(m))
}

// SupportedDeployment is where a registration is allowed to run.
type SupportedDeployment int

const (
	DeploymentServerOnly SupportedDeployment = 0
	DeploymentClientOnly SupportedDeployment = 1
	DeploymentBoth       SupportedDeployment = 2
)

func (d SupportedDeployment) String() string {
	switch d {
	case DeploymentServerOnly:
		return "ServerOnly"
	case DeploymentClientOnly:
		return "ClientOnly"
	case DeploymentBoth:
		return "Both"
	}
	return fmt.Sprintf("Deployment(%d)", int(d))
}

// ImageKind selects the before or after snapshot collection.
type ImageKind int

const (
	PreImage ImageKind = iota
	PostImage
)

func (k ImageKind) String() string {
	if k == PostImage {
		return "PostImage"
	}
	return "PreImage"
}

// CollectionName is the context field holding images of this kind.
func (k ImageKind) CollectionName() string {
	if k == PostImage {
		return "PostEntityImages"
	}
	return "PreEntityImages"
}

// MessageType is a known host message. Names the table does not carry map to
// MessageUnknown; callers needing the exact text read MessageName.
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageNone
	MessageAddItem
	MessageAddListMembers
	MessageAddMember
	MessageAddMembers
	MessageAddPrivileges
	MessageAddProductToKit
	MessageAddRecurrence
	MessageAddToQueue
	MessageAssign
	MessageAssignUserRoles
	MessageAssociate
	MessageBackgroundSend
	MessageBook
	MessageCancel
	MessageCheckIncoming
	MessageCheckPromote
	MessageClone
	MessageClose
	MessageCopyDynamicListToStatic
	MessageCopySystemForm
	MessageCreate
	MessageCreateException
	MessageCreateInstance
	MessageDelete
	MessageDeleteOpenInstances
	MessageDeliverIncoming
	MessageDeliverPromote
	MessageDetachFromQueue
	MessageDisassociate
	MessageExecute
	MessageExecuteById
	MessageExport
	MessageExportAll
	MessageExportCompressed
	MessageExportCompressedAll
	MessageGrantAccess
	MessageHandle
	MessageImport
	MessageImportAll
	MessageImportCompressedAll
	MessageImportCompressedWithProgress
	MessageImportWithProgress
	MessageLockInvoicePricing
	MessageLockSalesOrderPricing
	MessageLose
	MessageMerge
	MessageModifyAccess
	MessagePublish
	MessagePublishAll
	MessageQualifyLead
	MessageRecalculate
	MessageRemoveItem
	MessageRemoveMember
	MessageRemoveMembers
	MessageRemovePrivilege
	MessageRemoveProductFromKit
	MessageRemoveRelated
	MessageRemoveUserRoles
	MessageReplacePrivileges
	MessageReschedule
	MessageRetrieve
	MessageRetrieveExchangeRate
	MessageRetrieveFilteredForms
	MessageRetrieveMultiple
	MessageRetrievePersonalWall
	MessageRetrievePrincipalAccess
	MessageRetrieveRecordWall
	MessageRetrieveSharedPrincipalsAndAccess
	MessageRetrieveUnpublished
	MessageRetrieveUnpublishedMultiple
	MessageRevokeAccess
	MessageRoute
	MessageSend
	MessageSendFromTemplate
	MessageSetRelated
	MessageSetState
	MessageSetStateDynamicEntity
	MessageTriggerServiceEndpointCheck
	MessageUnlockInvoicePricing
	MessageUnlockSalesOrderPricing
	MessageUpdate
	MessageValidateRecurrenceRule
	MessageWin
)

var messageNames = [...]string{
	MessageUnknown:                           "Unknown",
	MessageNone:                              "None",
	MessageAddItem:                           "AddItem",
	MessageAddListMembers:                    "AddListMembers",
	MessageAddMember:                         "AddMember",
	MessageAddMembers:                        "AddMembers",
	MessageAddPrivileges:                     "AddPrivileges",
	MessageAddProductToKit:                   "AddProductToKit",
	MessageAddRecurrence:                     "AddRecurrence",
	MessageAddToQueue:                        "AddToQueue",
	MessageAssign:                            "Assign",
	MessageAssignUserRoles:                   "AssignUserRoles",
	MessageAssociate:                         "Associate",
	MessageBackgroundSend:                    "BackgroundSend",
	MessageBook:                              "Book",
	MessageCancel:                            "Cancel",
	MessageCheckIncoming:                     "CheckIncoming",
	MessageCheckPromote:                      "CheckPromote",
	MessageClone:                             "Clone",
	MessageClose:                             "Close",
	MessageCopyDynamicListToStatic:           "CopyDynamicListToStatic",
	MessageCopySystemForm:                    "CopySystemForm",
	MessageCreate:                            "Create",
	MessageCreateException:                   "CreateException",
	MessageCreateInstance:                    "CreateInstance",
	MessageDelete:                            "Delete",
	MessageDeleteOpenInstances:               "DeleteOpenInstances",
	MessageDeliverIncoming:                   "DeliverIncoming",
	MessageDeliverPromote:                    "DeliverPromote",
	MessageDetachFromQueue:                   "DetachFromQueue",
	MessageDisassociate:                      "Disassociate",
	MessageExecute:                           "Execute",
	MessageExecuteById:                       "ExecuteById",
	MessageExport:                            "Export",
	MessageExportAll:                         "ExportAll",
	MessageExportCompressed:                  "ExportCompressed",
	MessageExportCompressedAll:               "ExportCompressedAll",
	MessageGrantAccess:                       "GrantAccess",
	MessageHandle:                            "Handle",
	MessageImport:                            "Import",
	MessageImportAll:                         "ImportAll",
	MessageImportCompressedAll:               "ImportCompressedAll",
	MessageImportCompressedWithProgress:      "ImportCompressedWithProgress",
	MessageImportWithProgress:                "ImportWithProgress",
	MessageLockInvoicePricing:                "LockInvoicePricing",
	MessageLockSalesOrderPricing:             "LockSalesOrderPricing",
	MessageLose:                              "Lose",
	MessageMerge:                             "Merge",
	MessageModifyAccess:                      "ModifyAccess",
	MessagePublish:                           "Publish",
	MessagePublishAll:                        "PublishAll",
	MessageQualifyLead:                       "QualifyLead",
	MessageRecalculate:                       "Recalculate",
	MessageRemoveItem:                        "RemoveItem",
	MessageRemoveMember:                      "RemoveMember",
	MessageRemoveMembers:                     "RemoveMembers",
	MessageRemovePrivilege:                   "RemovePrivilege",
	MessageRemoveProductFromKit:              "RemoveProductFromKit",
	MessageRemoveRelated:                     "RemoveRelated",
	MessageRemoveUserRoles:                   "RemoveUserRoles",
	MessageReplacePrivileges:                 "ReplacePrivileges",
	MessageReschedule:                        "Reschedule",
	MessageRetrieve:                          "Retrieve",
	MessageRetrieveExchangeRate:              "RetrieveExchangeRate",
	MessageRetrieveFilteredForms:             "RetrieveFilteredForms",
	MessageRetrieveMultiple:                  "RetrieveMultiple",
	MessageRetrievePersonalWall:              "RetrievePersonalWall",
	MessageRetrievePrincipalAccess:           "RetrievePrincipalAccess",
	MessageRetrieveRecordWall:                "RetrieveRecordWall",
	MessageRetrieveSharedPrincipalsAndAccess: "RetrieveSharedPrincipalsAndAccess",
	MessageRetrieveUnpublished:               "RetrieveUnpublished",
	MessageRetrieveUnpublishedMultiple:       "RetrieveUnpublishedMultiple",
	MessageRevokeAccess:                      "RevokeAccess",
	MessageRoute:                             "Route",
	MessageSend:                              "Send",
	MessageSendFromTemplate:                  "SendFromTemplate",
	MessageSetRelated:                        "SetRelated",
	MessageSetState:                          "SetState",
	MessageSetStateDynamicEntity:             "SetStateDynamicEntity",
	MessageTriggerServiceEndpointCheck:       "TriggerServiceEndpointCheck",
	MessageUnlockInvoicePricing:              "UnlockInvoicePricing",
	MessageUnlockSalesOrderPricing:           "UnlockSalesOrderPricing",
	MessageUpdate:                            "Update",
	MessageValidateRecurrenceRule:            "ValidateRecurrenceRule",
	MessageWin:                               "Win",
}

var messagesByName = func() map[string]MessageType {
	m := make(map[string]MessageType, len(messageNames))
	for i, name := range messageNames {
		if MessageType(i) == MessageUnknown {
			continue
		}
		m[name] = MessageType(i)
	}
	return m
}()

// ParseMessage maps a host message name to its MessageType. Lookup is case
// sensitive; unknown names yield MessageUnknown.
func ParseMessage(name string) MessageType {
	if t, ok := messagesByName[name]; ok {
		return t
	}
	return MessageUnknown
}

func (t MessageType) String() string {
	if t >= 0 && int(t) < len(messageNames) {
		return messageNames[t]
	}
	return fmt.Sprintf("Message(%d)", int(t))
}
