package mcpserver

// RuleFormatContract describes the canonical rule format that LLM
// consumers should follow when creating or editing rules.
const RuleFormatContract = `# Raido Rule Format Contract

Every rule MUST be a JSON object with this structure. Rules are evaluated
in list order against a note's frontmatter; the first enabled rule that
matches wins, and later rules are never evaluated.

## Structure

` + "```" + `json
{
  "key": "status",                  // REQUIRED - frontmatter key to match on
  "matchType": "equals",            // equals | contains | starts-with | ends-with | regex
  "value": "done",                  // REQUIRED - comparison value (or regex source)
  "flags": "i",                     // regex only - i, m, s honored; g, u ignored
  "destination": "Archive/{project}", // folder template; {key} placeholders allowed
  "enabled": true,                  // disabled rules are skipped entirely
  "caseInsensitive": false,         // fold case for the non-regex match types
  "debug": false,                   // true = compute the move but never execute it
  "conflictResolution": "fail",     // fail | skip | append-number | append-timestamp
  "conditions": [                   // OPTIONAL - extra predicates
    {"key": "type", "matchType": "equals", "value": "project"}
  ],
  "conditionOperator": "AND"        // AND (all must hold) | OR (any suffices)
}
` + "```" + `

## Rules

1. **Order matters.** The first matching enabled rule decides the
   destination; put specific rules before general ones.
2. **Destination templates** may reference frontmatter values with
   ` + "`" + `{key}` + "`" + ` or dotted paths like ` + "`" + `{author.name}` + "`" + `. A missing value
   silently removes that path level. List values expand to nested
   folders (` + "`" + `["work","reports"]` + "`" + ` becomes ` + "`" + `work/reports` + "`" + `).
3. **An empty destination** makes the rule a recognized no-op: the note
   is matched but never moved.
4. **Regex values** are validated before use; patterns with catastrophic
   backtracking shapes (nested quantifiers, overlapping alternation) are
   rejected and reported as rule issues.
5. **Destinations are vault-relative.** Absolute paths, ` + "`" + `..` + "`" + ` segments,
   and characters invalid on common file systems are rejected.
6. **Array frontmatter** (like tags) matches if any element matches; for
   non-regex types the rule value is additionally split on whitespace,
   so ` + "`" + `"work urgent"` + "`" + ` matches a tag list containing either tag.

## Example

A note with frontmatter ` + "`" + `status: done` + "`" + ` and ` + "`" + `project: Apollo` + "`" + ` processed
against the rule above moves to ` + "`" + `Archive/Apollo/<name>.md` + "`" + `.
`
