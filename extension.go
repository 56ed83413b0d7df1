package talon

// Extension identifies an ESMTP extension keyword as advertised in an EHLO
// reply. Keywords are stored uppercased.
type Extension string

const (
	ExtSTARTTLS            Extension = "STARTTLS"
	ExtAuth                Extension = "AUTH"
	ExtSize                Extension = "SIZE"
	ExtPipelining          Extension = "PIPELINING"
	Ext8BitMIME            Extension = "8BITMIME"
	ExtSMTPUTF8            Extension = "SMTPUTF8"
	ExtDSN                 Extension = "DSN"
	ExtEnhancedStatusCodes Extension = "ENHANCEDSTATUSCODES"
	ExtHelp                Extension = "HELP"
)
