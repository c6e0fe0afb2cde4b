package help

// QuickstartYAML is printed by the quickstart command.
const QuickstartYAML = `# layout-editor Quick Start

layout:
  data_dir: "page JSON files with a sibling image: report_page_1.json + report_page_1.png"
  image_names: "<stem>_original.<ext>, <stem>.<ext>, <stem>_annotated.<ext>"
  image_types: "png, jpg, jpeg, tif, tiff, bmp, webp"
  documents: "files differing only by page number (page_N or trailing _N) form one document"

commands:
  serve: |
    layout-editor --data-dir ./data serve --addr 127.0.0.1:7090

  list_documents: |
    layout-editor docs

  page_status: |
    layout-editor status report/report

  discard_changes: |
    layout-editor reset report/report 3

  export_document: |
    layout-editor export --doc report/report --format yaml -o report.yaml

  export_annotated_pdf: |
    layout-editor export --format pdf -o project.pdf

editor:
  select: "click a box; shift-click toggles it into the selection"
  move: "drag a box"
  resize: "alt-drag resizes from the bottom-right corner"
  save: "saves replace the whole page; validate saves first unless validate_saves is false"
  reset: "drops saved changes and reloads the original file"

config: "config.yaml (see config.example.yaml); flags override file values"
`
