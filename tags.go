package pstgo

// Well-known property tags. The type half is the one Unicode files use;
// lookups match by property id, so ANSI files with 8-bit strings resolve
// to the same tags.
const (
	TagMessageClass          PropertyTag = 0x001A001F
	TagSubject               PropertyTag = 0x0037001F
	TagImportance            PropertyTag = 0x00170003
	TagSensitivity           PropertyTag = 0x00360003
	TagClientSubmitTime      PropertyTag = 0x00390040
	TagSentRepresentingName  PropertyTag = 0x0042001F
	TagConversationTopic     PropertyTag = 0x0070001F
	TagTransportHeaders      PropertyTag = 0x007D001F
	TagRecipientType         PropertyTag = 0x0C150003
	TagSenderName            PropertyTag = 0x0C1A001F
	TagSenderAddrType        PropertyTag = 0x0C1E001F
	TagSenderEmailAddress    PropertyTag = 0x0C1F001F
	TagDisplayBcc            PropertyTag = 0x0E02001F
	TagDisplayCc             PropertyTag = 0x0E03001F
	TagDisplayTo             PropertyTag = 0x0E04001F
	TagMessageDeliveryTime   PropertyTag = 0x0E060040
	TagMessageFlags          PropertyTag = 0x0E070003
	TagMessageSize           PropertyTag = 0x0E080003
	TagHasAttachments        PropertyTag = 0x0E1B000B
	TagAttachSize            PropertyTag = 0x0E200003
	TagRecordKey             PropertyTag = 0x0FF90102
	TagBody                  PropertyTag = 0x1000001F
	TagRTFCompressed         PropertyTag = 0x10090102
	TagBodyHTML              PropertyTag = 0x10130102
	TagInternetMessageID     PropertyTag = 0x1035001F
	TagCreationTime          PropertyTag = 0x30070040
	TagLastModificationTime  PropertyTag = 0x30080040
	TagDisplayName           PropertyTag = 0x3001001F
	TagAddrType              PropertyTag = 0x3002001F
	TagEmailAddress          PropertyTag = 0x3003001F
	TagContentCount          PropertyTag = 0x36020003
	TagContentUnreadCount    PropertyTag = 0x36030003
	TagSubfolders            PropertyTag = 0x360A000B
	TagContainerClass        PropertyTag = 0x3613001F
	TagAttachDataBinary      PropertyTag = 0x37010102
	TagAttachDataObject      PropertyTag = 0x3701000D
	TagAttachFilename        PropertyTag = 0x3704001F
	TagAttachMethod          PropertyTag = 0x37050003
	TagAttachLongFilename    PropertyTag = 0x3707001F
	TagAttachRendering       PropertyTag = 0x370B0003
	TagAttachMimeTag         PropertyTag = 0x370E001F
	TagAttachContentID       PropertyTag = 0x3712001F
	TagAttachFlags           PropertyTag = 0x37140003
	TagSMTPAddress           PropertyTag = 0x39FE001F
	TagSenderSMTPAddress     PropertyTag = 0x5D01001F
	TagAttachmentHidden      PropertyTag = 0x7FFE000B
	TagMessageCodePage       PropertyTag = 0x3FFD0003
	TagInternetCodePage      PropertyTag = 0x3FDE0003
	TagIPMSubtreeEntryID     PropertyTag = 0x35E00102
	TagIPMWastebasketEntryID PropertyTag = 0x35E30102
)

// Message flags (TagMessageFlags).
const (
	MessageFlagRead       = 0x0001
	MessageFlagUnmodified = 0x0002
	MessageFlagSubmitted  = 0x0004
	MessageFlagUnsent     = 0x0008
	MessageFlagHasAttach  = 0x0010
	MessageFlagFromMe     = 0x0020
	MessageFlagAssociated = 0x0040
)
